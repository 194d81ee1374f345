package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/pkg/mq"
	"planboard/pkg/util"
)

type TaskStatusChangedHandler struct {
	repo    *repository.HistoryRepository
	deduper *util.Deduper
	logger  *zap.Logger
}

func NewTaskStatusChangedHandler(repo *repository.HistoryRepository, deduper *util.Deduper, logger *zap.Logger) *TaskStatusChangedHandler {
	return &TaskStatusChangedHandler{repo: repo, deduper: deduper, logger: logger}
}

func (h *TaskStatusChangedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mq.TaskStatusChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal status changed payload (non-retryable)", zap.Error(err))
		return nil
	}

	op := fmt.Sprintf("history_status:%d", p.OccurredAt.UnixNano())
	if !h.deduper.AcquireOnce(ctx, op, p.TaskID) {
		h.logger.Info("Duplicate status event skipped", zap.Int("task_id", p.TaskID))
		return nil
	}

	entry := &model.TaskHistory{
		TaskID:  p.TaskID,
		Kind:    "status_changed",
		Detail:  fmt.Sprintf("status %s -> %s", p.OldStatus, p.NewStatus),
		ActorID: p.UpdatedBy,
	}
	if err := h.repo.Insert(ctx, entry); err != nil {
		return err
	}

	h.logger.Info("Status history recorded",
		zap.Int("task_id", p.TaskID),
		zap.String("new_status", p.NewStatus),
	)
	return nil
}
