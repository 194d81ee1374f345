package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"planboard/internal/repository"
	"planboard/internal/schedule"
	"planboard/internal/service"
)

// respondError maps domain failures onto client-error responses with the
// offending task or connection named in the message. Core errors are
// deterministic, so nothing here is retried; the client has to change
// its input.
func respondError(c *gin.Context, err error) {
	var oob *schedule.OutOfMilestoneBoundsError
	var invalidConn *schedule.InvalidConnectionError
	var blocked *schedule.StatusTransitionBlockedError

	switch {
	case errors.As(err, &oob):
		c.JSON(http.StatusConflict, gin.H{"error": oob.Error()})
	case errors.As(err, &invalidConn):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidConn.Error()})
	case errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{"error": blocked.Error()})
	case errors.Is(err, schedule.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTaskHasConnections):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrProposalDecided):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func currentUserID(c *gin.Context) (int, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
