package monitoring

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"taskflow/internal/notify"
	"taskflow/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startTime = time.Now()

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskflow",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskflow",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 1, 3},
		},
		[]string{"method", "route"},
	)

	inFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskflow",
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests",
		},
	)

	taskEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskflow",
			Name:      "task_events_total",
			Help:      "Task store notifications by kind",
		},
		[]string{"kind"},
	)
)

// MetricsMiddleware records request count, latency and in-flight requests.
// Routes are labelled by their gin pattern so task ids do not explode the
// label space.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		inFlightRequests.Inc()
		defer inFlightRequests.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// EventCounter counts task store notifications by kind.
type EventCounter struct{}

func (EventCounter) Notify(_ context.Context, event notify.Event) {
	taskEvents.WithLabelValues(string(event.Kind)).Inc()
}

type StatsSource interface {
	Stats(now time.Time) tasks.Stats
}

// StoreCollector exposes the current task counts as gauges, read from the
// store on every scrape.
type StoreCollector struct {
	source StatsSource
	now    func() time.Time
	desc   *prometheus.Desc
	rate   *prometheus.Desc
}

func NewStoreCollector(source StatsSource) *StoreCollector {
	return &StoreCollector{
		source: source,
		now:    time.Now,
		desc: prometheus.NewDesc(
			"taskflow_tasks",
			"Number of tasks by state",
			[]string{"state"}, nil,
		),
		rate: prometheus.NewDesc(
			"taskflow_tasks_completion_rate",
			"Completed tasks as a percentage of all tasks",
			nil, nil,
		),
	}
}

func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
	ch <- c.rate
}

func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats(c.now())

	for state, v := range map[string]int{
		"total":     s.Total,
		"completed": s.Completed,
		"pending":   s.Pending,
		"overdue":   s.Overdue,
		"due_today": s.DueToday,
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(v), state)
	}
	ch <- prometheus.MustNewConstMetric(c.rate, prometheus.GaugeValue, float64(s.CompletionRate))
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func GetSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime: time.Since(startTime).Round(time.Second).String(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(m.Alloc),
			TotalAlloc:   bToMb(m.TotalAlloc),
			Sys:          bToMb(m.Sys),
			NumGC:        m.NumGC,
			GCPauseTotal: time.Duration(m.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
