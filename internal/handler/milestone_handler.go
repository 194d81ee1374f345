package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/service"
)

type MilestoneHandler struct {
	milestoneRepo *repository.MilestoneRepository
	projectRepo   *repository.ProjectRepository
	taskRepo      *repository.TaskRepository
	taskService   *service.TaskService
	logger        *zap.Logger
}

func NewMilestoneHandler(
	milestoneRepo *repository.MilestoneRepository,
	projectRepo *repository.ProjectRepository,
	taskRepo *repository.TaskRepository,
	taskService *service.TaskService,
	logger *zap.Logger,
) *MilestoneHandler {
	return &MilestoneHandler{
		milestoneRepo: milestoneRepo,
		projectRepo:   projectRepo,
		taskRepo:      taskRepo,
		taskService:   taskService,
		logger:        logger,
	}
}

// Create handles POST /projects/:id/milestones. The supplied range becomes
// both the working range and the baseline.
func (h *MilestoneHandler) Create(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req struct {
		Name  string `json:"name" binding:"required"`
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
	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must not be after end"})
		return
	}

	if _, err := h.projectRepo.FindByID(c.Request.Context(), projectID); err != nil {
		respondError(c, err)
		return
	}

	m := &model.Milestone{
		ProjectID:     projectID,
		Name:          req.Name,
		Start:         start,
		End:           end,
		OriginalStart: start,
		OriginalEnd:   end,
	}
	id, err := h.milestoneRepo.Insert(c.Request.Context(), m)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Milestone created", zap.Int("milestone_id", id), zap.Int("project_id", projectID))
	c.JSON(http.StatusCreated, m)
}

// Get handles GET /milestones/:id, returning the milestone, its tasks and
// the derived readiness figure.
func (h *MilestoneHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return
	}

	m, err := h.milestoneRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	tasks, err := h.taskRepo.FindByMilestone(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	readiness, err := h.taskService.MilestoneReadiness(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	m.Readiness = readiness

	c.JSON(http.StatusOK, gin.H{"milestone": m, "tasks": tasks})
}

// UpdateBaseline handles PATCH /milestones/:id/baseline. The baseline range
// may only be edited while the owning project is still in planning.
func (h *MilestoneHandler) UpdateBaseline(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid milestone id"})
		return
	}

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
	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must not be after end"})
		return
	}

	m, err := h.milestoneRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := h.projectRepo.FindByID(c.Request.Context(), m.ProjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	if p.Status != model.ProjectPlanning {
		c.JSON(http.StatusConflict, gin.H{"error": "baseline can only be changed while the project is in planning"})
		return
	}

	m.OriginalStart = start
	m.OriginalEnd = end
	if err := h.milestoneRepo.UpdateOriginalRange(c.Request.Context(), m); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
