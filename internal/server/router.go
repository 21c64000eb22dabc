// Package server assembles the gin engine: middleware, task routes and the
// monitoring endpoints.
package server

import (
	"context"

	"taskflow/internal/config"
	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
	"taskflow/internal/monitoring"
	"taskflow/internal/notify"
	"taskflow/internal/storage"
	"taskflow/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Config  *config.Config
	Store   *tasks.Store
	Storage storage.KeyValueStore
	Events  *notify.Recorder
	Limiter *middleware.RateLimiter
	Health  *monitoring.HealthChecker
	Logger  logrus.FieldLogger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(d.Logger),
		middleware.RecoveryWithLogger(d.Logger),
		middleware.RequestLogger(d.Logger),
		monitoring.MetricsMiddleware(),
		middleware.CORS(d.Config.Server.CORSOrigins),
	)

	health := d.Health
	if health == nil {
		health = monitoring.NewHealthChecker()
	}
	if d.Storage != nil {
		health.Register("storage", func(ctx context.Context) error {
			return d.Storage.Health(ctx)
		})
	}

	r.GET("/health", monitoring.HealthHandler(health))
	r.GET("/ready", monitoring.ReadinessHandler(d.Store.Ready, health))
	r.GET("/live", monitoring.LivenessHandler())
	r.GET("/metrics", monitoring.MetricsHandler())

	h := handlers.NewTaskHandler(d.Store, d.Events, d.Logger)

	api := r.Group("/api")
	api.GET("/tasks", h.ListTasks)
	api.GET("/tasks/:id", h.GetTask)
	api.GET("/stats", h.GetStats)
	api.GET("/events", h.GetEvents)

	mutating := api.Group("")
	if d.Config.RateLimit.Enabled && d.Limiter != nil {
		mutating.Use(d.Limiter.Middleware())
	}
	mutating.POST("/tasks", h.CreateTask)
	mutating.POST("/tasks/clear-completed", h.ClearCompleted)
	mutating.PATCH("/tasks/:id", h.UpdateTask)
	mutating.POST("/tasks/:id/toggle", h.ToggleTask)
	mutating.DELETE("/tasks/:id", h.DeleteTask)

	return r
}
