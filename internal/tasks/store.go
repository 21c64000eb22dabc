// Package tasks owns the task collection: ordering and filtering of task
// lists, and the Store that loads, mutates and persists them.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/notify"
	"taskflow/internal/storage"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultKey = "taskflow-tasks-v1"

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNotReady     = errors.New("task store is not ready")
	ErrInvalidTask  = models.ErrInvalidTask

	// ErrStorageUnavailable means the stored collection could not be read,
	// so writing the in-memory one would overwrite tasks it never saw.
	ErrStorageUnavailable = errors.New("task storage unavailable")
)

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// Store is the single writer of the task collection. Reads return copies.
// Every mutation persists the whole collection under one key before its
// notification goes out.
type Store struct {
	mu      sync.RWMutex
	tasks   []models.Task
	ready   bool
	loadErr error

	kv       storage.KeyValueStore
	notifier notify.Notifier
	key      string
	now      func() time.Time
	newID    func() string
	log      logrus.FieldLogger
}

func NewStore(kv storage.KeyValueStore, notifier notify.Notifier, opts ...Option) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}

	s := &Store{
		kv:       kv,
		notifier: notifier,
		key:      DefaultKey,
		now:      time.Now,
		newID:    newUUID,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// Initialize loads the persisted collection. Read or decode failures leave
// the collection empty and emit load-failed. The store is ready afterwards
// whatever happened. Calling it again reloads.
//
// After a read failure the next mutation reads storage again before
// writing, and fails with ErrStorageUnavailable if it still cannot.
func (s *Store) Initialize(ctx context.Context) {
	loaded, err := s.load(ctx)

	s.mu.Lock()
	s.tasks = loaded
	s.ready = true
	s.loadErr = err
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("key", s.key).Error("failed to load tasks")
		s.emit(ctx, notify.KindLoadFailed, "")
		return
	}
	s.log.WithField("count", len(loaded)).Info("tasks loaded")
}

func (s *Store) load(ctx context.Context) ([]models.Task, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return []models.Task{}, nil
	}
	if err != nil {
		return []models.Task{}, fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, s.key, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return []models.Task{}, fmt.Errorf("decode %s: %w", s.key, err)
	}

	list := make([]models.Task, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		var t models.Task
		if err := json.Unmarshal(rec, &t); err != nil {
			s.log.WithError(err).WithField("index", i).Warn("skipping undecodable task record")
			continue
		}
		if err := t.Validate(); err != nil {
			s.log.WithError(err).WithField("index", i).Warn("skipping invalid task record")
			continue
		}
		if _, dup := seen[t.ID]; dup {
			s.log.WithField("task_id", t.ID).Warn("skipping duplicate task record")
			continue
		}
		seen[t.ID] = struct{}{}
		list = append(list, t)
	}
	return list, nil
}

// LoadErr returns the error of the most recent load, or nil.
func (s *Store) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// reloadLocked retries a load that failed to read. Decode failures are
// accepted as before: the collection starts empty. Callers hold s.mu.
func (s *Store) reloadLocked(ctx context.Context) error {
	loaded, err := s.load(ctx)
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	if err != nil {
		s.log.WithError(err).WithField("key", s.key).Error("stored tasks are unreadable, starting empty")
	} else {
		s.log.WithField("count", len(loaded)).Info("tasks reloaded")
	}
	s.tasks = loaded
	s.loadErr = err
	return nil
}

func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Tasks returns the collection in insertion order.
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tasks)
}

func (s *Store) Get(id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.tasks, id)
	if i < 0 {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return s.tasks[i].Clone(), nil
}

func (s *Store) Visible(filters models.TaskFilters) []models.Task {
	return Visible(s.Tasks(), filters)
}

func (s *Store) Stats(now time.Time) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeStats(s.tasks, now)
}

func (s *Store) Add(ctx context.Context, form models.TaskFormData) (models.Task, error) {
	tr, err := s.mutate(ctx, func(list []models.Task, now time.Time) (Transition, error) {
		return addTask(list, form, s.newID(), now)
	})
	return tr.Task.Clone(), err
}

func (s *Store) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	tr, err := s.mutate(ctx, func(list []models.Task, now time.Time) (Transition, error) {
		return updateTask(list, id, patch, now)
	})
	return tr.Task.Clone(), err
}

func (s *Store) Toggle(ctx context.Context, id string) (models.Task, error) {
	tr, err := s.mutate(ctx, func(list []models.Task, now time.Time) (Transition, error) {
		return toggleTask(list, id, now)
	})
	return tr.Task.Clone(), err
}

// Remove deletes the task and emits deleted even when id is unknown, in
// which case it also returns ErrTaskNotFound.
func (s *Store) Remove(ctx context.Context, id string) error {
	tr, err := s.mutate(ctx, func(list []models.Task, _ time.Time) (Transition, error) {
		return removeTask(list, id), nil
	})
	if err != nil {
		return err
	}
	if tr.Removed == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// ClearCompleted drops every completed task and returns how many went.
// cleared is emitted even when nothing was removed.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	tr, err := s.mutate(ctx, func(list []models.Task, _ time.Time) (Transition, error) {
		return clearCompleted(list), nil
	})
	return tr.Removed, err
}

// mutate applies fn under the write lock, swaps in the new collection and
// persists it. Notifications go out after the lock is released.
func (s *Store) mutate(ctx context.Context, fn func([]models.Task, time.Time) (Transition, error)) (Transition, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return Transition{}, ErrNotReady
	}
	if errors.Is(s.loadErr, ErrStorageUnavailable) {
		if err := s.reloadLocked(ctx); err != nil {
			s.mu.Unlock()
			s.log.WithError(err).WithField("key", s.key).Error("not writing tasks over a collection that could not be read")
			s.emit(ctx, notify.KindSaveFailed, "")
			return Transition{}, err
		}
	}

	tr, err := fn(s.tasks, s.now())
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrInvalidTask) {
			s.log.WithError(err).Debug("rejected invalid task input")
			s.emit(ctx, notify.KindValidationFailed, "")
		}
		return Transition{}, err
	}

	s.tasks = tr.Tasks
	saveErr := s.save(ctx, tr.Tasks)
	s.mu.Unlock()

	if saveErr != nil {
		s.log.WithError(saveErr).WithField("key", s.key).Error("failed to save tasks")
		s.emit(ctx, notify.KindSaveFailed, tr.Task.ID)
	}
	s.emit(ctx, tr.Event, tr.Task.ID)
	return tr, nil
}

func (s *Store) save(ctx context.Context, list []models.Task) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return s.kv.Set(ctx, s.key, string(data))
}

func (s *Store) emit(ctx context.Context, kind notify.Kind, taskID string) {
	s.notifier.Notify(context.WithoutCancel(ctx), notify.Event{
		Kind:   kind,
		TaskID: taskID,
		At:     s.now(),
	})
}

func cloneAll(list []models.Task) []models.Task {
	out := make([]models.Task, len(list))
	for i, t := range list {
		out[i] = t.Clone()
	}
	return out
}
