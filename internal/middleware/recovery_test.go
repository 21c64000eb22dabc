package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskflow/internal/logger"
	"taskflow/internal/middleware"

	"github.com/gin-gonic/gin"
)

func TestRecoveryWithLog_NoPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRecoveryWithLog_WithPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	expectedError := `{"error":"internal server error"}`
	if w.Body.String() != expectedError {
		t.Errorf("Expected error message %s, got %s", expectedError, w.Body.String())
	}
}

func TestRecoveryWithLogger_LogsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	log := logger.New("info", "json", &buf)

	router := gin.New()
	router.Use(middleware.RequestID(log), middleware.RecoveryWithLogger(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("Expected log entry to carry the request id, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("Expected panic to be logged, got %s", buf.String())
	}
}
