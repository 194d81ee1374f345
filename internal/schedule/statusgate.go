package schedule

import (
	"context"
	"fmt"

	"planboard/internal/model"
)

// StatusGate guards task status transitions against unmet predecessor
// constraints. It only checks incoming connections; it imposes no order
// between the three statuses themselves.
type StatusGate struct {
	store GraphStore
}

func NewStatusGate(store GraphStore) *StatusGate {
	return &StatusGate{store: store}
}

// Check returns a StatusTransitionBlockedError naming the first blocking
// predecessor, or nil when the transition is allowed. A no-op transition
// is always allowed.
func (g *StatusGate) Check(ctx context.Context, task *model.Task, newStatus model.TaskStatus) error {
	if newStatus == task.Status {
		return nil
	}

	incoming, err := g.store.FindConnections(ctx, task.ID, model.RoleTarget)
	if err != nil {
		return err
	}

	for _, conn := range incoming {
		pred, err := g.store.FindTask(ctx, conn.SourceTaskID)
		if err != nil {
			return err
		}

		switch conn.Type {
		case model.FinishToStart, model.FinishToFinish:
			if pred.Status != model.TaskDone {
				return &StatusTransitionBlockedError{Message: fmt.Sprintf(
					"task %q is blocked: predecessor %q must be done first", task.Name, pred.Name)}
			}
		case model.StartToStart:
			if pred.Status == model.TaskNotStarted {
				return &StatusTransitionBlockedError{Message: fmt.Sprintf(
					"task %q is blocked: predecessor %q has not started", task.Name, pred.Name)}
			}
		}
	}
	return nil
}
