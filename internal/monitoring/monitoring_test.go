package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskflow/internal/notify"
	"taskflow/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats tasks.Stats

func (f fixedStats) Stats(time.Time) tasks.Stats { return tasks.Stats(f) }

func TestStoreCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewStoreCollector(fixedStats{Total: 4, Completed: 1, Pending: 3, Overdue: 2, CompletionRate: 25}))

	expected := `
# HELP taskflow_tasks Number of tasks by state
# TYPE taskflow_tasks gauge
taskflow_tasks{state="completed"} 1
taskflow_tasks{state="due_today"} 0
taskflow_tasks{state="overdue"} 2
taskflow_tasks{state="pending"} 3
taskflow_tasks{state="total"} 4
# HELP taskflow_tasks_completion_rate Completed tasks as a percentage of all tasks
# TYPE taskflow_tasks_completion_rate gauge
taskflow_tasks_completion_rate 25
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected))
	assert.NoError(t, err)
}

func TestEventCounter(t *testing.T) {
	before := testutil.ToFloat64(taskEvents.WithLabelValues("save-failed"))

	var n notify.Notifier = EventCounter{}
	n.Notify(context.Background(), notify.Event{Kind: notify.KindSaveFailed})
	n.Notify(context.Background(), notify.Event{Kind: notify.KindSaveFailed})

	assert.Equal(t, before+2, testutil.ToFloat64(taskEvents.WithLabelValues("save-failed")))
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/api/tasks/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", MetricsHandler())

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "/api/tasks/:id", "200"))

	req, _ := http.NewRequest("GET", "/api/tasks/123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, before+1, testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "/api/tasks/:id", "200")))

	req, _ = http.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "taskflow_http_requests_total") {
		t.Error("Expected metrics output to include taskflow_http_requests_total")
	}
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.Register("storage", func(context.Context) error { return nil })
	h.Register("redis", func(context.Context) error { return errors.New("connection refused") })

	checks, healthy := h.Run(context.Background())
	require.Len(t, checks, 2)
	assert.False(t, healthy)
	assert.Equal(t, "redis", checks[0].Name)
	assert.Equal(t, "unhealthy", checks[0].Status)
	assert.Equal(t, "connection refused", checks[0].Message)
	assert.Equal(t, "healthy", checks[1].Status)
}

func TestHealthHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ready := false
	h := NewHealthChecker()
	h.Register("storage", func(context.Context) error { return nil })

	router := gin.New()
	router.GET("/health", HealthHandler(h))
	router.GET("/ready", ReadinessHandler(func() bool { return ready }, h))
	router.GET("/live", LivenessHandler())

	get := func(path string) (*httptest.ResponseRecorder, map[string]interface{}) {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var body map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &body)
		return w, body
	}

	w, body := get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "system")

	w, body = get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready before the store loads")
	assert.Equal(t, "not ready", body["status"])

	ready = true
	w, _ = get("/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	h.Register("broken", func(context.Context) error { return errors.New("down") })
	w, _ = get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w, _ = get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, body = get("/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", body["status"])
}
