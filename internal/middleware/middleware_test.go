package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/middleware"

	"github.com/gin-gonic/gin"
)

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(middleware.RequestID(logger.Discard()))
	router.GET("/test", func(c *gin.Context) {
		seen = middleware.GetRequestID(c)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if seen == "" {
		t.Fatal("Expected a generated request id")
	}
	if w.Header().Get(middleware.RequestIDHeader) != seen {
		t.Errorf("Expected response header %s, got %s", seen, w.Header().Get(middleware.RequestIDHeader))
	}

	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set(middleware.RequestIDHeader, "from-client")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if seen != "from-client" {
		t.Errorf("Expected client request id to be reused, got %s", seen)
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	log := logger.New("info", "json", &buf)

	router := gin.New()
	router.Use(middleware.RequestID(log), middleware.RequestLogger(log))
	router.GET("/tasks/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	})

	req, _ := http.NewRequest("GET", "/tasks/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := buf.String()
	for _, want := range []string{`"status":404`, `"route":"/tasks/:id"`, `"level":"warning"`, `"request_id"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %s, got %s", want, out)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := middleware.NewRateLimiter(config.RateLimitConfig{
		Enabled:         true,
		RequestsPerMin:  60,
		BurstSize:       2,
		CleanupInterval: time.Minute,
	})

	router := gin.New()
	router.Use(rl.Middleware())
	router.POST("/tasks", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("POST", "/tasks", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Error("Expected Retry-After header on rejection")
		}
	}

	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated {
		t.Errorf("Expected burst of 2 to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third request to be limited, got %d", codes[2])
	}

	req, _ := http.NewRequest("POST", "/tasks", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("Expected a different client to have its own bucket, got %d", w.Code)
	}

	if rl.Visitors() != 2 {
		t.Errorf("Expected 2 visitors, got %d", rl.Visitors())
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.CORS([]string{"http://localhost:5173"}))
	router.GET("/api/tasks", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("OPTIONS", "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	req, _ = http.NewRequest("GET", "/api/tasks", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected disallowed origin to be rejected, got %d", w.Code)
	}
}
