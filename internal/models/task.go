package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

var ErrInvalidTask = errors.New("invalid task")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high > medium > low. Unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PriorityMedium, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, s)
	}
	return p, nil
}

type Task struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=1000"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority" validate:"required,oneof=high medium low"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" validate:"required"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Validate checks a task that did not come through TaskFormData, such as a
// record read back from storage. It repairs timestamps that would break
// UpdatedAt >= CreatedAt and rejects everything else.
func (t *Task) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.DueDate != nil {
		d := NormalizeDate(*t.DueDate)
		t.DueDate = &d
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
	return nil
}

func (t Task) HasDueDate() bool {
	return t.DueDate != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

type TaskFormData struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=1000"`
	Priority    Priority   `json:"priority,omitempty" validate:"required,oneof=high medium low"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Normalize trims text, defaults the priority and truncates the due date to
// midnight. It does not validate.
func (f TaskFormData) Normalize() TaskFormData {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	if strings.TrimSpace(string(f.Priority)) == "" {
		f.Priority = PriorityMedium
	}
	f.Priority = Priority(strings.ToLower(strings.TrimSpace(string(f.Priority))))
	if f.DueDate != nil {
		d := NormalizeDate(*f.DueDate)
		f.DueDate = &d
	}
	return f
}

func (f TaskFormData) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	return nil
}

// TaskPatch is a partial TaskFormData. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"clearDueDate,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}

// Apply merges the patch over t and returns the result. UpdatedAt is left to
// the caller.
func (p TaskPatch) Apply(t Task) (Task, error) {
	form := TaskFormData{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
	}
	if p.Title != nil {
		form.Title = *p.Title
	}
	if p.Description != nil {
		form.Description = *p.Description
	}
	if p.Priority != nil {
		form.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		form.DueDate = &d
	}
	if p.ClearDueDate {
		form.DueDate = nil
	}

	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return t, err
	}

	t.Title = form.Title
	t.Description = form.Description
	t.Priority = form.Priority
	t.DueDate = form.DueDate
	return t, nil
}

// NormalizeDate drops the time of day, keeping the date in t's location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
