package tasks

import (
	"sort"

	"taskflow/internal/models"
)

// Less reports whether a sorts before b: pending before completed, then
// higher priority, then tasks with a due date (earliest first), then the
// most recently created.
func Less(a, b models.Task) bool {
	if a.Completed != b.Completed {
		return !a.Completed
	}

	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}

	switch {
	case a.HasDueDate() && b.HasDueDate():
		if !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
	case a.HasDueDate():
		return true
	case b.HasDueDate():
		return false
	}

	return a.CreatedAt.After(b.CreatedAt)
}

// SortByPriority returns a sorted copy. Ties keep their input order.
func SortByPriority(list []models.Task) []models.Task {
	sorted := make([]models.Task, len(list))
	copy(sorted, list)

	sort.SliceStable(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})
	return sorted
}
