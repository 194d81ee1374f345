package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planboard/internal/service"
)

type ProposalHandler struct {
	proposalService *service.ProposalService
	logger          *zap.Logger
}

func NewProposalHandler(proposalService *service.ProposalService, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService, logger: logger}
}

// Create handles POST /tasks/:id/proposals. Either bound may be omitted, in
// which case the task's current bound is kept when the proposal is applied.
func (h *ProposalHandler) Create(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	userID, _ := currentUserID(c)

	var req struct {
		Start *string `json:"start"`
		End   *string `json:"end"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Start == nil && req.End == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one of start, end is required"})
		return
	}

	var start, end *time.Time
	if req.Start != nil {
		t, ok := parseDate(*req.Start)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
		start = &t
	}
	if req.End != nil {
		t, ok := parseDate(*req.End)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
		end = &t
	}

	p, err := h.proposalService.Create(c.Request.Context(), taskID, start, end, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Proposal created", zap.Int("proposal_id", p.ID), zap.Int("task_id", taskID))
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /proposals/:id
func (h *ProposalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	p, err := h.proposalService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Preview handles GET /proposals/:id/preview. It computes the cascade the
// approval would trigger without writing anything.
func (h *ProposalHandler) Preview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	tasks, err := h.proposalService.Preview(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected_tasks": tasks})
}

// Approve handles POST /proposals/:id/approve
func (h *ProposalHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	userID, _ := currentUserID(c)

	tasks, err := h.proposalService.Approve(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated_tasks": tasks})
}

// Reject handles POST /proposals/:id/reject
func (h *ProposalHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	userID, _ := currentUserID(c)

	if err := h.proposalService.Reject(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
