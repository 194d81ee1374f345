package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
)

type ProjectHandler struct {
	projectRepo   *repository.ProjectRepository
	milestoneRepo *repository.MilestoneRepository
	logger        *zap.Logger
}

func NewProjectHandler(projectRepo *repository.ProjectRepository, milestoneRepo *repository.MilestoneRepository, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projectRepo: projectRepo, milestoneRepo: milestoneRepo, logger: logger}
}

// Create handles POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p := &model.Project{
		OwnerID: userID,
		Name:    req.Name,
		Status:  model.ProjectPlanning,
	}
	id, err := h.projectRepo.Insert(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Project created", zap.Int("project_id", id), zap.Int("owner_id", userID))
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /projects/:id, returning the project with its milestones.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	p, err := h.projectRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	milestones, err := h.milestoneRepo.FindByProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": p, "milestones": milestones})
}

// UpdateStatus handles PATCH /projects/:id/status
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req struct {
		Status model.ProjectStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	switch req.Status {
	case model.ProjectPlanning, model.ProjectActive, model.ProjectCompleted, model.ProjectCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	if err := h.projectRepo.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
