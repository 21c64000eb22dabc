package tasks

import (
	"fmt"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/notify"
)

// Transition is the outcome of a pure state change: the new collection, the
// task it concerned (zero for bulk changes), the event to emit and how many
// tasks were removed.
type Transition struct {
	Tasks   []models.Task
	Task    models.Task
	Event   notify.Kind
	Removed int
}

func indexOf(list []models.Task, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// stamp never lets UpdatedAt fall behind CreatedAt, even with a clock that
// went backwards.
func stamp(t *models.Task, now time.Time) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

func replaced(list []models.Task, i int, t models.Task) []models.Task {
	out := make([]models.Task, len(list))
	copy(out, list)
	out[i] = t
	return out
}

func addTask(list []models.Task, form models.TaskFormData, id string, now time.Time) (Transition, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return Transition{}, err
	}
	if id == "" || indexOf(list, id) >= 0 {
		return Transition{}, fmt.Errorf("duplicate or empty task id %q", id)
	}

	task := models.Task{
		ID:          id,
		Title:       form.Title,
		Description: form.Description,
		Priority:    form.Priority,
		DueDate:     form.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	out := make([]models.Task, len(list), len(list)+1)
	copy(out, list)
	out = append(out, task)

	return Transition{Tasks: out, Task: task, Event: notify.KindCreated}, nil
}

func updateTask(list []models.Task, id string, patch models.TaskPatch, now time.Time) (Transition, error) {
	i := indexOf(list, id)
	if i < 0 {
		return Transition{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	task, err := patch.Apply(list[i].Clone())
	if err != nil {
		return Transition{}, err
	}
	stamp(&task, now)

	return Transition{Tasks: replaced(list, i, task), Task: task, Event: notify.KindUpdated}, nil
}

func toggleTask(list []models.Task, id string, now time.Time) (Transition, error) {
	i := indexOf(list, id)
	if i < 0 {
		return Transition{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	task := list[i].Clone()
	task.Completed = !task.Completed
	stamp(&task, now)

	event := notify.KindReopened
	if task.Completed {
		event = notify.KindCompleted
	}
	return Transition{Tasks: replaced(list, i, task), Task: task, Event: event}, nil
}

// removeTask always yields a transition; Removed is 0 when id was unknown.
func removeTask(list []models.Task, id string) Transition {
	tr := Transition{Event: notify.KindDeleted}
	tr.Tasks = make([]models.Task, 0, len(list))
	for _, t := range list {
		if t.ID == id {
			tr.Task = t
			tr.Removed++
			continue
		}
		tr.Tasks = append(tr.Tasks, t)
	}
	return tr
}

func clearCompleted(list []models.Task) Transition {
	tr := Transition{Event: notify.KindCleared}
	tr.Tasks = make([]models.Task, 0, len(list))
	for _, t := range list {
		if t.Completed {
			tr.Removed++
			continue
		}
		tr.Tasks = append(tr.Tasks, t)
	}
	return tr
}
