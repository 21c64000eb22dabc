package storage

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskflow",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Storage operations by back end, operation and result",
		},
		[]string{"backend", "op", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskflow",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage operations in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"backend", "op"},
	)
)

// InstrumentedStore records a counter and a latency histogram for every
// call it forwards.
type InstrumentedStore struct {
	next    KeyValueStore
	backend string
}

func NewInstrumentedStore(next KeyValueStore, backend string) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	operationDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues(s.backend, op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrKeyNotFound):
		return "miss"
	case errors.Is(err, ErrCircuitBreakerOpen):
		return "rejected"
	default:
		return "error"
	}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	value, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return value, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.next.Set(ctx, key, value)
	s.observe("set", start, err)
	return err
}

func (s *InstrumentedStore) Health(ctx context.Context) error {
	return s.next.Health(ctx)
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}

func (s *InstrumentedStore) Unwrap() KeyValueStore {
	return s.next
}
