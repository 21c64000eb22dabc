package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerConfig configures the embedded BadgerDB back end.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Tests only.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64

	// Logger receives BadgerDB's internal logging. Nil silences it.
	Logger logrus.FieldLogger
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// BadgerStore persists values in an embedded BadgerDB. Each Set is one
// read-write transaction, so a value is either fully written or not at all.
type BadgerStore struct {
	db       *badger.DB
	gcRunner *gcRunner
	once     sync.Once
}

func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	// logrus.FieldLogger already satisfies badger.Logger.
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	store := &BadgerStore{db: db}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		store.gcRunner = runner
		runner.start()
	}

	return store, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (string, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", ErrKeyNotFound
		}
		if errors.Is(err, badger.ErrDBClosed) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("badger get %s: %w", key, err)
	}
	return string(value), nil
}

func (s *BadgerStore) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			return ErrClosed
		}
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Health(context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close stops the GC runner and closes the database. Safe to call twice.
func (s *BadgerStore) Close() error {
	var err error
	s.once.Do(func() {
		if s.gcRunner != nil {
			s.gcRunner.stop()
		}
		err = s.db.Close()
	})
	return err
}

type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      logrus.FieldLogger
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, log logrus.FieldLogger) (*gcRunner, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if ratio < 0 || ratio > 1 {
		return nil, errors.New("ratio must be between 0 and 1")
	}

	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      log,
	}, nil
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runGC()
		}
	}
}

func (r *gcRunner) runGC() {
	// ErrNoRewrite means nothing was worth collecting.
	err := r.db.RunValueLogGC(r.ratio)
	if err == nil {
		if r.log != nil {
			r.log.Debug("badger value log GC completed")
		}
	} else if !errors.Is(err, badger.ErrNoRewrite) {
		if r.log != nil {
			r.log.WithError(err).Warn("badger value log GC error")
		}
	}
}
