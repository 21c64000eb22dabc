package tasks

import (
	"math"
	"time"

	"taskflow/internal/models"
)

type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Overdue        int `json:"overdue"`
	DueToday       int `json:"dueToday"`
	CompletionRate int `json:"completionRate"`
}

// ComputeStats counts overdue and due-today tasks among pending ones only.
// CompletionRate is a rounded percentage.
func ComputeStats(list []models.Task, now time.Time) Stats {
	var s Stats
	s.Total = len(list)

	for _, t := range list {
		if t.Completed {
			s.Completed++
			continue
		}
		if !t.HasDueDate() {
			continue
		}
		if IsOverdue(*t.DueDate, now) {
			s.Overdue++
		} else if IsDueToday(*t.DueDate, now) {
			s.DueToday++
		}
	}

	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}
