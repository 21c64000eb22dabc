// Package notify carries the fire-and-forget outcome events emitted by the
// task store. Events have a kind and, where one exists, the affected task id;
// message text is left to whoever displays them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindCreated          Kind = "created"
	KindUpdated          Kind = "updated"
	KindCompleted        Kind = "completed"
	KindReopened         Kind = "reopened"
	KindDeleted          Kind = "deleted"
	KindCleared          Kind = "cleared"
	KindLoadFailed       Kind = "load-failed"
	KindSaveFailed       Kind = "save-failed"
	KindValidationFailed Kind = "validation-failed"
)

// Failure reports whether the kind signals a recoverable error rather than a
// successful operation.
func (k Kind) Failure() bool {
	switch k {
	case KindLoadFailed, KindSaveFailed, KindValidationFailed:
		return true
	default:
		return false
	}
}

type Event struct {
	Kind   Kind      `json:"kind"`
	TaskID string    `json:"task_id,omitempty"`
	At     time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event)

func (f NotifierFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

// Discard drops every event.
var Discard Notifier = NotifierFunc(func(context.Context, Event) {})

type multi []Notifier

// Multi fans an event out to every notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}

type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) {
	entry := n.log.WithFields(logrus.Fields{
		"event":   string(event.Kind),
		"task_id": event.TaskID,
	})
	if event.Kind.Failure() {
		entry.Warn("task store notification")
		return
	}
	entry.Info("task store notification")
}

// Recorder keeps the most recent events in memory. The HTTP layer serves
// them to the UI and tests use it to assert on emitted kinds.
type Recorder struct {
	mu     sync.RWMutex
	events []Event
	limit  int
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if len(r.events) > r.limit {
		r.events = append([]Event(nil), r.events[len(r.events)-r.limit:]...)
	}
}

func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Kinds() []Kind {
	events := r.Events()
	kinds := make([]Kind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (r *Recorder) Last() (Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
