package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/service"
)

type ConnectionHandler struct {
	connectionService *service.ConnectionService
	logger            *zap.Logger
}

func NewConnectionHandler(connectionService *service.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService, logger: logger}
}

// Create handles POST /connections
func (h *ConnectionHandler) Create(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req struct {
		SourceTaskID int                  `json:"source_task_id" binding:"required"`
		TargetTaskID int                  `json:"target_task_id" binding:"required"`
		Type         model.ConnectionType `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown connection type"})
		return
	}

	conn, err := h.connectionService.Create(c.Request.Context(), req.SourceTaskID, req.TargetTaskID, req.Type, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Connection created",
		zap.Int("connection_id", conn.ID),
		zap.Int("source_task_id", conn.SourceTaskID),
		zap.Int("target_task_id", conn.TargetTaskID),
		zap.String("type", string(conn.Type)))
	c.JSON(http.StatusCreated, conn)
}

// UpdateType handles PATCH /connections/:id
func (h *ConnectionHandler) UpdateType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return
	}
	userID, _ := currentUserID(c)

	var req struct {
		Type model.ConnectionType `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown connection type"})
		return
	}

	conn, err := h.connectionService.UpdateType(c.Request.Context(), id, req.Type, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// Delete handles DELETE /connections/:id
func (h *ConnectionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return
	}

	if err := h.connectionService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListByTask handles GET /tasks/:id/connections?role=source|target
func (h *ConnectionHandler) ListByTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	role := model.ConnectionRole(c.DefaultQuery("role", string(model.RoleSource)))
	if role != model.RoleSource && role != model.RoleTarget {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be source or target"})
		return
	}

	conns, err := h.connectionService.ListByTask(c.Request.Context(), taskID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": conns})
}
