package models_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"taskflow/internal/models"

	"github.com/gofrs/uuid"
)

func TestTask_Validation(t *testing.T) {
	now := time.Now()
	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()).String(),
		Title:       "  Test Task  ",
		Description: "Test Description",
		Priority:    models.PriorityHigh,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		t.Fatalf("Expected valid task, got %v", err)
	}

	if task.Title != "Test Task" {
		t.Errorf("Expected title 'Test Task', got '%s'", task.Title)
	}
}

func TestTask_EmptyTitle(t *testing.T) {
	task := models.Task{
		ID:        uuid.Must(uuid.NewV4()).String(),
		Title:     "   ",
		Priority:  models.PriorityMedium,
		CreatedAt: time.Now(),
	}

	err := task.Validate()
	if !errors.Is(err, models.ErrInvalidTask) {
		t.Errorf("Expected ErrInvalidTask, got %v", err)
	}
}

func TestTask_UnknownPriority(t *testing.T) {
	task := models.Task{
		ID:        "1",
		Title:     "Test",
		Priority:  "urgent",
		CreatedAt: time.Now(),
	}

	if err := task.Validate(); err == nil {
		t.Error("Expected error for unknown priority")
	}
}

func TestTask_RepairsUpdatedAt(t *testing.T) {
	created := time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC)
	task := models.Task{
		ID:        "1",
		Title:     "Test",
		Priority:  models.PriorityLow,
		CreatedAt: created,
	}

	if err := task.Validate(); err != nil {
		t.Fatalf("Expected valid task, got %v", err)
	}

	if !task.UpdatedAt.Equal(created) {
		t.Errorf("Expected UpdatedAt %v, got %v", created, task.UpdatedAt)
	}
}

func TestPriority_Rank(t *testing.T) {
	if !(models.PriorityHigh.Rank() > models.PriorityMedium.Rank() &&
		models.PriorityMedium.Rank() > models.PriorityLow.Rank()) {
		t.Error("Expected high > medium > low")
	}

	if models.Priority("urgent").Valid() {
		t.Error("Expected unknown priority to be invalid")
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Priority
		wantErr  bool
	}{
		{"", models.PriorityMedium, false},
		{"HIGH", models.PriorityHigh, false},
		{" low ", models.PriorityLow, false},
		{"urgent", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := models.ParsePriority(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if p != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, p)
			}
		})
	}
}

func TestTaskFormData_Normalize(t *testing.T) {
	due := time.Date(2023, 12, 2, 15, 30, 0, 0, time.UTC)
	form := models.TaskFormData{
		Title:       "  Buy milk ",
		Description: "   ",
		DueDate:     &due,
	}.Normalize()

	if form.Title != "Buy milk" {
		t.Errorf("Expected trimmed title, got '%s'", form.Title)
	}

	if form.Description != "" {
		t.Errorf("Expected empty description, got '%s'", form.Description)
	}

	if form.Priority != models.PriorityMedium {
		t.Errorf("Expected default priority medium, got %s", form.Priority)
	}

	if form.DueDate.Hour() != 0 || form.DueDate.Day() != 2 {
		t.Errorf("Expected due date normalized to midnight, got %v", form.DueDate)
	}

	if due.Hour() != 15 {
		t.Error("Normalize must not modify the caller's due date")
	}
}

func TestTaskFormData_ValidateLength(t *testing.T) {
	form := models.TaskFormData{
		Title:    strings.Repeat("é", models.MaxTitleLength),
		Priority: models.PriorityLow,
	}
	if err := form.Validate(); err != nil {
		t.Errorf("Expected %d runes to be accepted, got %v", models.MaxTitleLength, err)
	}

	form.Title += "x"
	if err := form.Validate(); err == nil {
		t.Error("Expected error for title over the limit")
	}
}

func TestTaskPatch_Apply(t *testing.T) {
	due := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	task := models.Task{
		ID:          "1",
		Title:       "Original",
		Description: "keep me",
		Priority:    models.PriorityLow,
		DueDate:     &due,
	}

	title := "  Renamed "
	high := models.PriorityHigh
	patched, err := models.TaskPatch{Title: &title, Priority: &high}.Apply(task)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if patched.Title != "Renamed" {
		t.Errorf("Expected title 'Renamed', got '%s'", patched.Title)
	}
	if patched.Description != "keep me" {
		t.Errorf("Expected description untouched, got '%s'", patched.Description)
	}
	if patched.Priority != models.PriorityHigh {
		t.Errorf("Expected priority high, got %s", patched.Priority)
	}
	if patched.DueDate == nil || !patched.DueDate.Equal(due) {
		t.Errorf("Expected due date untouched, got %v", patched.DueDate)
	}

	cleared, err := models.TaskPatch{ClearDueDate: true}.Apply(task)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cleared.DueDate != nil {
		t.Errorf("Expected due date cleared, got %v", cleared.DueDate)
	}
}

func TestTaskPatch_RejectsBlankTitle(t *testing.T) {
	task := models.Task{ID: "1", Title: "Original", Priority: models.PriorityLow}
	blank := "  "

	patched, err := models.TaskPatch{Title: &blank}.Apply(task)
	if !errors.Is(err, models.ErrInvalidTask) {
		t.Errorf("Expected ErrInvalidTask, got %v", err)
	}
	if patched.Title != "Original" {
		t.Errorf("Expected task unchanged, got '%s'", patched.Title)
	}
}

func TestTaskFilters_Normalize(t *testing.T) {
	f := models.TaskFilters{Priority: "HIGH"}.Normalize()

	if f.Priority != models.PriorityFilterHigh {
		t.Errorf("Expected priority filter high, got %s", f.Priority)
	}
	if f.Status != models.StatusAll {
		t.Errorf("Expected status all, got %s", f.Status)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	bad := models.TaskFilters{Priority: "all", Status: "archived"}
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for unknown status filter")
	}
}
