package models

import (
	"fmt"
	"strings"
)

type PriorityFilter string

const (
	PriorityFilterAll    PriorityFilter = "all"
	PriorityFilterHigh   PriorityFilter = PriorityFilter(PriorityHigh)
	PriorityFilterMedium PriorityFilter = PriorityFilter(PriorityMedium)
	PriorityFilterLow    PriorityFilter = PriorityFilter(PriorityLow)
)

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusCompleted StatusFilter = "completed"
	StatusPending   StatusFilter = "pending"
)

type TaskFilters struct {
	Search   string         `json:"search" form:"search"`
	Priority PriorityFilter `json:"priority" form:"priority"`
	Status   StatusFilter   `json:"status" form:"status"`
}

func DefaultFilters() TaskFilters {
	return TaskFilters{
		Priority: PriorityFilterAll,
		Status:   StatusAll,
	}
}

// Normalize lowercases the enum fields and fills empty ones with "all".
func (f TaskFilters) Normalize() TaskFilters {
	f.Priority = PriorityFilter(strings.ToLower(strings.TrimSpace(string(f.Priority))))
	if f.Priority == "" {
		f.Priority = PriorityFilterAll
	}
	f.Status = StatusFilter(strings.ToLower(strings.TrimSpace(string(f.Status))))
	if f.Status == "" {
		f.Status = StatusAll
	}
	return f
}

func (f TaskFilters) Validate() error {
	switch f.Priority {
	case PriorityFilterAll, PriorityFilterHigh, PriorityFilterMedium, PriorityFilterLow:
	default:
		return fmt.Errorf("unknown priority filter %q", f.Priority)
	}
	switch f.Status {
	case StatusAll, StatusCompleted, StatusPending:
	default:
		return fmt.Errorf("unknown status filter %q", f.Status)
	}
	return nil
}
