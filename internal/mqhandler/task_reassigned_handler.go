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

type TaskReassignedHandler struct {
	repo    *repository.HistoryRepository
	deduper *util.Deduper
	logger  *zap.Logger
}

func NewTaskReassignedHandler(repo *repository.HistoryRepository, deduper *util.Deduper, logger *zap.Logger) *TaskReassignedHandler {
	return &TaskReassignedHandler{repo: repo, deduper: deduper, logger: logger}
}

func (h *TaskReassignedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mq.TaskReassignedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal reassigned payload (non-retryable)", zap.Error(err))
		return nil
	}

	op := fmt.Sprintf("history_reassigned:%d", p.OccurredAt.UnixNano())
	if !h.deduper.AcquireOnce(ctx, op, p.TaskID) {
		h.logger.Info("Duplicate reassignment event skipped", zap.Int("task_id", p.TaskID))
		return nil
	}

	entry := &model.TaskHistory{
		TaskID:  p.TaskID,
		Kind:    "reassigned",
		Detail:  fmt.Sprintf("assignees %v -> %v", p.OldAssignees, p.NewAssignees),
		ActorID: p.UpdatedBy,
	}
	if err := h.repo.Insert(ctx, entry); err != nil {
		return err
	}

	h.logger.Info("Reassignment history recorded", zap.Int("task_id", p.TaskID))
	return nil
}
