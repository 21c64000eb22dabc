package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/notify"
	"taskflow/internal/storage"
	"taskflow/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Environment: "test",
			CORSOrigins: []string{"http://localhost:5173"},
		},
		RateLimit: config.RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 60,
			BurstSize:      3,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *tasks.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := storage.NewMemoryStore()
	events := notify.NewRecorder(0)
	store := tasks.NewStore(kv, events, tasks.WithLogger(logger.Discard()))

	router := NewRouter(Deps{
		Config:  cfg,
		Store:   store,
		Storage: kv,
		Events:  events,
		Limiter: middleware.NewRateLimiter(cfg.RateLimit),
		Logger:  logger.Discard(),
	})
	return router, store
}

func request(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterReadiness(t *testing.T) {
	router, store := newTestRouter(t, testConfig())

	w := request(router, "GET", "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = request(router, "POST", "/api/tasks", map[string]string{"title": "too early"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	store.Initialize(context.Background())

	w = request(router, "GET", "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage"`)
}

func TestRouterTaskLifecycle(t *testing.T) {
	router, store := newTestRouter(t, testConfig())
	store.Initialize(context.Background())

	w := request(router, "POST", "/api/tasks", map[string]string{"title": "Write report", "priority": "high"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = request(router, "POST", "/api/tasks/"+created.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = request(router, "GET", "/api/tasks?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = request(router, "GET", "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completionRate":100`)

	w = request(router, "GET", "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(notify.KindCompleted))

	w = request(router, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRateLimitsMutations(t *testing.T) {
	router, store := newTestRouter(t, testConfig())
	store.Initialize(context.Background())

	var codes []int
	for i := 0; i < 4; i++ {
		codes = append(codes, request(router, "POST", "/api/tasks/clear-completed", nil).Code)
	}
	assert.Equal(t, []int{200, 200, 200, http.StatusTooManyRequests}, codes)

	// reads are not limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, request(router, "GET", "/api/tasks", nil).Code)
	}
}

func TestRouterRateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	router, store := newTestRouter(t, cfg)
	store.Initialize(context.Background())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, request(router, "POST", "/api/tasks/clear-completed", nil).Code)
	}
}

func TestRouterCORS(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	req, _ := http.NewRequest("OPTIONS", "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
