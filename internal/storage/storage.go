// Package storage provides the durable key-value stores the task store
// persists its collection into. Every back end stores opaque text under a
// string key; the task store owns the encoding.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("store is closed")
)

type KeyValueStore interface {
	// Get returns ErrKeyNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Health(ctx context.Context) error
	Close() error
}

// Open builds the back end named by cfg.Storage.Backend and wraps it with a
// circuit breaker and prometheus instrumentation. A redis client is only
// needed for the redis back end and may be nil otherwise.
func Open(ctx context.Context, cfg *config.Config, rdb *redis.Client, log logrus.FieldLogger) (KeyValueStore, error) {
	var (
		store KeyValueStore
		err   error
	)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		store = NewMemoryStore()
	case config.BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis backend requires a redis client")
		}
		store = NewRedisStoreFromClient(rdb)
	case config.BackendBadger:
		store, err = OpenBadgerStore(BadgerConfig{
			Path:           cfg.Badger.Path,
			InMemory:       cfg.Badger.InMemory,
			SyncWrites:     cfg.Badger.SyncWrites,
			GCInterval:     cfg.Badger.GCInterval,
			GCDiscardRatio: cfg.Badger.GCDiscardRatio,
			Logger:         log,
		})
	case config.BackendSQLite:
		pool := PoolConfigFromDatabase(cfg.Database)
		pool.Dialector = DialectorSQLite
		pool.DSN = cfg.Database.SQLitePath
		store, err = OpenSQLStore(pool)
	case config.BackendPostgres:
		pool := PoolConfigFromDatabase(cfg.Database)
		pool.Dialector = DialectorPostgres
		pool.DSN = cfg.GetDatabaseDSN()
		store, err = OpenSQLStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Health(hctx); err != nil {
		log.WithError(err).WithField("backend", cfg.Storage.Backend).Warn("storage health check failed at startup")
	}

	breaker := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      cfg.Storage.BreakerMaxFailures,
		Timeout:          cfg.Storage.BreakerTimeout,
		HalfOpenMaxCalls: 1,
	})

	return NewInstrumentedStore(NewBreakerStore(store, breaker), cfg.Storage.Backend), nil
}
