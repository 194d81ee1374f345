package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"planboard/config"
	"planboard/internal/mqhandler"
	"planboard/internal/repository"
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

	log.Info("Starting planboard worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, 24*time.Hour, log)

	historyRepo := repository.NewHistoryRepository(dbConn, log)

	rescheduledHandler := mqhandler.NewTaskRescheduledHandler(historyRepo, deduper, log)
	statusHandler := mqhandler.NewTaskStatusChangedHandler(historyRepo, deduper, log)
	reassignedHandler := mqhandler.NewTaskReassignedHandler(historyRepo, deduper, log)

	// MQ consumer for task.rescheduled
	log.Info("Initializing MQ consumer for task.rescheduled...",
		zap.String("queue", "task.rescheduled.q"),
		zap.String("routing_key", mq.RoutingTaskRescheduled),
	)
	rescheduledConsumer, err := mq.NewConsumer(cfg.MQ.URL, "task.rescheduled.q", mq.RoutingTaskRescheduled, log)
	if err != nil {
		log.Fatal("Failed to init rescheduled consumer", zap.Error(err))
	}
	defer rescheduledConsumer.Close()
	rescheduledConsumer.SetHandler(rescheduledHandler.Handle)
	go func() {
		if err := rescheduledConsumer.StartConsuming(); err != nil {
			log.Fatal("Rescheduled consumer failed", zap.Error(err))
		}
	}()

	// MQ consumer for task.status_changed
	log.Info("Initializing MQ consumer for task.status_changed...",
		zap.String("queue", "task.status_changed.q"),
		zap.String("routing_key", mq.RoutingTaskStatusChanged),
	)
	statusConsumer, err := mq.NewConsumer(cfg.MQ.URL, "task.status_changed.q", mq.RoutingTaskStatusChanged, log)
	if err != nil {
		log.Fatal("Failed to init status consumer", zap.Error(err))
	}
	defer statusConsumer.Close()
	statusConsumer.SetHandler(statusHandler.Handle)
	go func() {
		if err := statusConsumer.StartConsuming(); err != nil {
			log.Fatal("Status consumer failed", zap.Error(err))
		}
	}()

	// MQ consumer for task.reassigned
	log.Info("Initializing MQ consumer for task.reassigned...",
		zap.String("queue", "task.reassigned.q"),
		zap.String("routing_key", mq.RoutingTaskReassigned),
	)
	reassignedConsumer, err := mq.NewConsumer(cfg.MQ.URL, "task.reassigned.q", mq.RoutingTaskReassigned, log)
	if err != nil {
		log.Fatal("Failed to init reassigned consumer", zap.Error(err))
	}
	defer reassignedConsumer.Close()
	reassignedConsumer.SetHandler(reassignedHandler.Handle)
	go func() {
		if err := reassignedConsumer.StartConsuming(); err != nil {
			log.Fatal("Reassigned consumer failed", zap.Error(err))
		}
	}()

	log.Info("planboard worker is fully initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down planboard worker gracefully...")
	rescheduledConsumer.Close()
	statusConsumer.Close()
	reassignedConsumer.Close()
	log.Info("planboard worker shutdown complete")
}
