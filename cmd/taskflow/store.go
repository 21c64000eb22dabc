package main

import (
	"context"
	"fmt"

	"taskflow/internal/config"
	"taskflow/internal/monitoring"
	"taskflow/internal/notify"
	"taskflow/internal/storage"
	"taskflow/internal/tasks"

	"github.com/redis/go-redis/v9"
)

// session is an opened task store plus everything that has to be closed
// with it.
type session struct {
	store   *tasks.Store
	kv      storage.KeyValueStore
	rdb     *redis.Client
	events  *notify.Recorder
	closers []func() error
}

func (s *session) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// open connects the configured storage back end, assembles the notifier
// chain and loads the task collection.
func (a *app) open(ctx context.Context, extra ...notify.Notifier) (*session, error) {
	s := &session{events: notify.NewRecorder(a.cfg.Notify.HistorySize)}

	if a.cfg.UsesRedis() {
		s.rdb = storage.NewRedisClient(storage.RedisConfigFromConfig(a.cfg))
		// the redis back end closes the client itself
		if a.cfg.Storage.Backend != config.BackendRedis {
			s.closers = append(s.closers, s.rdb.Close)
		}
	}

	kv, err := storage.Open(ctx, a.cfg, s.rdb, a.log)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.kv = kv
	s.closers = append(s.closers, kv.Close)

	notifiers := []notify.Notifier{
		s.events,
		notify.NewLogNotifier(a.log),
		monitoring.EventCounter{},
	}
	if a.cfg.Notify.RedisEnabled && s.rdb != nil {
		notifiers = append(notifiers, notify.NewRedisNotifier(s.rdb, a.cfg.Notify.Queue, a.log))
	}
	notifiers = append(notifiers, extra...)

	s.store = tasks.NewStore(kv, notify.Multi(notifiers...),
		tasks.WithLogger(a.log),
		tasks.WithKey(a.cfg.Storage.Key),
	)
	s.store.Initialize(ctx)

	return s, nil
}

// withStore runs fn against a freshly opened store and closes it afterwards.
func (a *app) withStore(ctx context.Context, fn func(*tasks.Store) error) error {
	s, err := a.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open task store: %w", err)
	}
	defer s.Close()
	return fn(s.store)
}
