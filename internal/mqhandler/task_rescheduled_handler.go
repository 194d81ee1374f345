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

// TaskRescheduledHandler records one history row per shifted task so the
// audit trail survives even when the cascade touched tasks the caller
// never looked at.
type TaskRescheduledHandler struct {
	repo    *repository.HistoryRepository
	deduper *util.Deduper
	logger  *zap.Logger
}

func NewTaskRescheduledHandler(repo *repository.HistoryRepository, deduper *util.Deduper, logger *zap.Logger) *TaskRescheduledHandler {
	return &TaskRescheduledHandler{repo: repo, deduper: deduper, logger: logger}
}

func (h *TaskRescheduledHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mq.TaskRescheduledPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal task rescheduled payload (non-retryable)", zap.Error(err))
		return nil // malformed, ack and drop
	}

	op := fmt.Sprintf("history_rescheduled:%d", p.OccurredAt.UnixNano())
	if !h.deduper.AcquireOnce(ctx, op, p.TriggerTask) {
		h.logger.Info("Duplicate reschedule event skipped",
			zap.Int("trigger_task_id", p.TriggerTask))
		return nil
	}

	for _, shift := range p.Shifts {
		detail := fmt.Sprintf("moved from [%s, %s] to [%s, %s]",
			shift.OldStart.Format("2006-01-02"), shift.OldEnd.Format("2006-01-02"),
			shift.NewStart.Format("2006-01-02"), shift.NewEnd.Format("2006-01-02"))

		entry := &model.TaskHistory{
			TaskID:  shift.TaskID,
			Kind:    "rescheduled",
			Detail:  detail,
			ActorID: p.UpdatedBy,
		}
		if err := h.repo.Insert(ctx, entry); err != nil {
			return err // retryable, nack and redeliver
		}
	}

	h.logger.Info("Reschedule history recorded",
		zap.Int("trigger_task_id", p.TriggerTask),
		zap.Int("milestone_id", p.MilestoneID),
		zap.Int("shift_count", len(p.Shifts)),
	)
	return nil
}
