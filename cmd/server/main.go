package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"planboard/config"
	"planboard/internal/handler"
	"planboard/internal/httpserver"
	"planboard/internal/repository"
	"planboard/internal/schedule"
	"planboard/internal/service"
	"planboard/pkg/db"
	"planboard/pkg/logger"
	"planboard/pkg/mq"
	"planboard/pkg/redis"
	"planboard/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting planboard...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis
	log.Info("Initializing Redis client...")
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ publisher
	log.Info("Initializing MQ publisher...")
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()
	log.Info("MQ publisher connected", zap.String("exchange", mq.ExchangeName))

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	milestoneRepo := repository.NewMilestoneRepository(dbConn, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)
	connectionRepo := repository.NewConnectionRepository(dbConn, log)
	proposalRepo := repository.NewProposalRepository(dbConn, log)
	historyRepo := repository.NewHistoryRepository(dbConn, log)

	// Scheduling core
	graph := repository.NewGraph(taskRepo, connectionRepo)
	rescheduler := schedule.NewRescheduler(graph, log)
	gate := schedule.NewStatusGate(graph)

	// Services
	deduper := util.NewDeduper(rdb, 10*time.Minute, log)
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret)
	taskService := service.NewTaskService(dbConn, taskRepo, milestoneRepo, connectionRepo,
		rescheduler, gate, publisher, rdb, log)
	connectionService := service.NewConnectionService(taskRepo, connectionRepo, log)
	proposalService := service.NewProposalService(dbConn, proposalRepo, taskRepo, milestoneRepo,
		rescheduler, taskService, publisher, deduper, log)

	// HTTP server
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	log.Info("Initializing HTTP server...", zap.String("port", port))

	handlers := httpserver.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Project:    handler.NewProjectHandler(projectRepo, milestoneRepo, log),
		Milestone:  handler.NewMilestoneHandler(milestoneRepo, projectRepo, taskRepo, taskService, log),
		Task:       handler.NewTaskHandler(taskService, historyRepo, log),
		Connection: handler.NewConnectionHandler(connectionService, log),
		Proposal:   handler.NewProposalHandler(proposalService, log),
	}
	router := httpserver.NewRouter(handlers, cfg.JWT.Secret, log, dbConn, publisher)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("planboard is fully initialized and running", zap.String("http_port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down planboard gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("planboard shutdown complete")
}
