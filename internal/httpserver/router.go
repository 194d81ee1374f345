package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"planboard/internal/handler"
	"planboard/pkg/mq"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Project    *handler.ProjectHandler
	Milestone  *handler.MilestoneHandler
	Task       *handler.TaskHandler
	Connection *handler.ConnectionHandler
	Proposal   *handler.ProposalHandler
}

func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger, db *pgxpool.Pool, publisher *mq.Publisher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestLogMiddleware(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	auth := r.Group("/")
	auth.Use(handler.AuthMiddleware(jwtSecret))
	{
		auth.POST("/projects", h.Project.Create)
		auth.GET("/projects/:id", h.Project.Get)
		auth.PATCH("/projects/:id/status", h.Project.UpdateStatus)
		auth.POST("/projects/:id/milestones", h.Milestone.Create)

		auth.GET("/milestones/:id", h.Milestone.Get)
		auth.PATCH("/milestones/:id/baseline", h.Milestone.UpdateBaseline)
		auth.POST("/milestones/:id/tasks", h.Task.CreateTask)

		auth.GET("/tasks/:id", h.Task.GetTask)
		auth.PATCH("/tasks/:id/dates", h.Task.UpdateDates)
		auth.PATCH("/tasks/:id/status", h.Task.UpdateStatus)
		auth.PATCH("/tasks/:id/readiness", h.Task.UpdateReadiness)
		auth.PUT("/tasks/:id/assignees", h.Task.ReplaceAssignees)
		auth.DELETE("/tasks/:id", h.Task.Delete)
		auth.GET("/tasks/:id/history", h.Task.History)
		auth.GET("/tasks/:id/connections", h.Connection.ListByTask)
		auth.POST("/tasks/:id/proposals", h.Proposal.Create)

		auth.POST("/connections", h.Connection.Create)
		auth.PATCH("/connections/:id", h.Connection.UpdateType)
		auth.DELETE("/connections/:id", h.Connection.Delete)

		auth.GET("/proposals/:id", h.Proposal.Get)
		auth.GET("/proposals/:id/preview", h.Proposal.Preview)
		auth.POST("/proposals/:id/approve", h.Proposal.Approve)
		auth.POST("/proposals/:id/reject", h.Proposal.Reject)
	}

	return r
}
