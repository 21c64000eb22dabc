package monitoring

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheckFunc
	timeout time.Duration
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheckFunc),
		timeout: 5 * time.Second,
	}
}

func (h *HealthChecker) Register(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes every check with its own timeout and reports whether all of
// them passed.
func (h *HealthChecker) Run(ctx context.Context) ([]HealthCheck, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheckFunc, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()

	sort.Strings(names)

	healthy := true
	results := make([]HealthCheck, 0, len(names))
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := checks[name](cctx)
		cancel()

		result := HealthCheck{Name: name, Status: "healthy", LastRun: time.Now()}
		if err != nil {
			healthy = false
			result.Status = "unhealthy"
			result.Message = err.Error()
		}
		results = append(results, result)
	}
	return results, healthy
}

func HealthHandler(h *HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks, healthy := h.Run(c.Request.Context())

		status := http.StatusOK
		overall := "healthy"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": time.Now(),
			"checks":    checks,
			"system":    GetSystemMetrics(),
		})
	}
}

// ReadinessHandler reports ready once ready() is true and every check passes.
func ReadinessHandler(ready func() bool, h *HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok := ready()
		if ok {
			_, ok = h.Run(c.Request.Context())
		}

		if ok {
			c.JSON(http.StatusOK, gin.H{
				"status":    "ready",
				"timestamp": time.Now(),
			})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"timestamp": time.Now(),
		})
	}
}

func LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).Round(time.Second).String(),
		})
	}
}
