package tasks

import (
	"strings"

	"taskflow/internal/models"
)

// ApplyFilters keeps the tasks that match every filter. Unknown priority or
// status values behave like "all"; validate filters at the boundary.
func ApplyFilters(list []models.Task, filters models.TaskFilters) []models.Task {
	filters = filters.Normalize()
	search := strings.ToLower(strings.TrimSpace(filters.Search))

	out := make([]models.Task, 0, len(list))
	for _, t := range list {
		if matchesSearch(t, search) && matchesPriority(t, filters.Priority) && matchesStatus(t, filters.Status) {
			out = append(out, t)
		}
	}
	return out
}

// Visible is the list a UI renders: filtered, then sorted.
func Visible(list []models.Task, filters models.TaskFilters) []models.Task {
	return SortByPriority(ApplyFilters(list, filters))
}

// search must already be lowercased.
func matchesSearch(t models.Task, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), search) {
		return true
	}
	return t.Description != "" && strings.Contains(strings.ToLower(t.Description), search)
}

func matchesPriority(t models.Task, p models.PriorityFilter) bool {
	switch p {
	case models.PriorityFilterHigh, models.PriorityFilterMedium, models.PriorityFilterLow:
		return t.Priority == models.Priority(p)
	default:
		return true
	}
}

func matchesStatus(t models.Task, s models.StatusFilter) bool {
	switch s {
	case models.StatusCompleted:
		return t.Completed
	case models.StatusPending:
		return !t.Completed
	default:
		return true
	}
}
