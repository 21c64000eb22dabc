package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/notify"
	"taskflow/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TaskStore is the part of tasks.Store the HTTP layer needs.
type TaskStore interface {
	Ready() bool
	Get(id string) (models.Task, error)
	Visible(filters models.TaskFilters) []models.Task
	Stats(now time.Time) tasks.Stats
	Add(ctx context.Context, form models.TaskFormData) (models.Task, error)
	Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	Toggle(ctx context.Context, id string) (models.Task, error)
	Remove(ctx context.Context, id string) error
	ClearCompleted(ctx context.Context) (int, error)
}

type TaskHandler struct {
	store  TaskStore
	events *notify.Recorder
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewTaskHandler(store TaskStore, events *notify.Recorder, log logrus.FieldLogger) *TaskHandler {
	if events == nil {
		events = notify.NewRecorder(0)
	}
	return &TaskHandler{store: store, events: events, log: log, now: time.Now}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     *Date  `json:"dueDate"`
}

type updateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Priority     *string `json:"priority"`
	DueDate      *Date   `json:"dueDate"`
	ClearDueDate bool    `json:"clearDueDate"`
}

func (r updateTaskRequest) patch() models.TaskPatch {
	p := models.TaskPatch{
		Title:        r.Title,
		Description:  r.Description,
		DueDate:      r.DueDate.Ptr(),
		ClearDueDate: r.ClearDueDate,
	}
	if r.Priority != nil {
		prio := models.Priority(*r.Priority)
		p.Priority = &prio
	}
	return p
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	var filters models.TaskFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filters = filters.Normalize()
	if err := filters.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list := h.store.Visible(filters)
	c.JSON(http.StatusOK, gin.H{
		"tasks": list,
		"total": len(list),
		"ready": h.store.Ready(),
	})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.store.Get(c.Param("id"))
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.store.Add(c.Request.Context(), models.TaskFormData{
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.Priority(req.Priority),
		DueDate:     req.DueDate.Ptr(),
	})
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.store.Update(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) ToggleTask(c *gin.Context) {
	task, err := h.store.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.handleTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) ClearCompleted(c *gin.Context) {
	removed, err := h.store.ClearCompleted(c.Request.Context())
	if err != nil {
		h.handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *TaskHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats(h.now()))
}

// GetEvents returns the most recent notifications, newest last.
func (h *TaskHandler) GetEvents(c *gin.Context) {
	events := h.events.Events()

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *TaskHandler) handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, tasks.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task", "details": err.Error()})
	case errors.Is(err, tasks.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task store is still loading"})
	case errors.Is(err, tasks.ErrStorageUnavailable):
		h.log.WithError(err).Warn("task storage unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task storage is unavailable, try again"})
	default:
		h.log.WithError(err).Error("task request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
	}
}
