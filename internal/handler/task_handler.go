package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/service"
)

const dateLayout = "2006-01-02"

type TaskHandler struct {
	taskService *service.TaskService
	historyRepo *repository.HistoryRepository
	logger      *zap.Logger
}

func NewTaskHandler(taskService *service.TaskService, historyRepo *repository.HistoryRepository, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, historyRepo: historyRepo, logger: logger}
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	return id, err == nil
}

// CreateTask handles POST /milestones/:id/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	milestoneID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return
	}
	userID, _ := currentUserID(c)

	var req struct {
		Name            string `json:"name" binding:"required"`
		Start           string `json:"start" binding:"required"`
		End             string `json:"end" binding:"required"`
		Readiness       *int   `json:"readiness"`
		EstimatedHours  *int   `json:"estimated_hours"`
		DependsOnUserID *int   `json:"depends_on_user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	start, okStart := parseDate(req.Start)
	end, okEnd := parseDate(req.End)
	if !okStart || !okEnd {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
		return
	}

	t := &model.Task{
		MilestoneID:     milestoneID,
		Name:            req.Name,
		Start:           start,
		End:             end,
		Status:          model.TaskNotStarted,
		Readiness:       req.Readiness,
		EstimatedHours:  req.EstimatedHours,
		DependsOnUserID: req.DependsOnUserID,
		UpdatedBy:       userID,
	}

	id, err := h.taskService.CreateTask(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Task created", zap.Int("task_id", id), zap.Int("milestone_id", milestoneID))
	c.JSON(http.StatusCreated, t)
}

// GetTask handles GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	t, err := h.taskService.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateDates handles PATCH /tasks/:id/dates. A date move may cascade to
// every dependent task; the response carries the full set of tasks that
// were moved.
func (h *TaskHandler) UpdateDates(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	userID, _ := currentUserID(c)

	var req struct {
		Start string `json:"start" binding:"required"`
		End   string `json:"end" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	start, okStart := parseDate(req.Start)
	end, okEnd := parseDate(req.End)
	if !okStart || !okEnd {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
		return
	}

	moved, err := h.taskService.UpdateTaskDates(c.Request.Context(), id,
		model.NewDateRange(start, end), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated_tasks": moved})
}

// UpdateStatus handles PATCH /tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	userID, _ := currentUserID(c)

	var req struct {
		Status model.TaskStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	switch req.Status {
	case model.TaskNotStarted, model.TaskInProgress, model.TaskDone:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	if err := h.taskService.UpdateTaskStatus(c.Request.Context(), id, req.Status, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UpdateReadiness handles PATCH /tasks/:id/readiness
func (h *TaskHandler) UpdateReadiness(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	userID, _ := currentUserID(c)

	var req struct {
		Readiness *int `json:"readiness"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.taskService.UpdateTaskReadiness(c.Request.Context(), id, req.Readiness, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReplaceAssignees handles PUT /tasks/:id/assignees
func (h *TaskHandler) ReplaceAssignees(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	userID, _ := currentUserID(c)

	var req struct {
		UserIDs []int `json:"user_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.taskService.ReassignTask(c.Request.Context(), id, req.UserIDs, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// History handles GET /tasks/:id/history, returning the audit trail the
// worker assembled from the event stream.
func (h *TaskHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	entries, err := h.historyRepo.FindByTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
