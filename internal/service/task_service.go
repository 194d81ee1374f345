package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/schedule"
	"planboard/pkg/metrics"
	"planboard/pkg/mq"
)

var ErrTaskHasConnections = errors.New("task still has connections and cannot be deleted")

const readinessCacheTTL = 5 * time.Minute

// TaskService orchestrates the scheduling core against persistence: it
// owns the transaction boundary, the milestone row lock, event publishing
// and the readiness cache. The core itself stays pure.
type TaskService struct {
	pool        *pgxpool.Pool
	tasks       *repository.TaskRepository
	milestones  *repository.MilestoneRepository
	conns       *repository.ConnectionRepository
	rescheduler *schedule.Rescheduler
	gate        *schedule.StatusGate
	publisher   *mq.Publisher
	rdb         *redis.Client
	logger      *zap.Logger
}

func NewTaskService(
	pool *pgxpool.Pool,
	tasks *repository.TaskRepository,
	milestones *repository.MilestoneRepository,
	conns *repository.ConnectionRepository,
	rescheduler *schedule.Rescheduler,
	gate *schedule.StatusGate,
	publisher *mq.Publisher,
	rdb *redis.Client,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		pool:        pool,
		tasks:       tasks,
		milestones:  milestones,
		conns:       conns,
		rescheduler: rescheduler,
		gate:        gate,
		publisher:   publisher,
		rdb:         rdb,
		logger:      logger,
	}
}

// CreateTask inserts a task into a milestone, growing the milestone
// envelope first so the containment invariant holds from the moment the
// task exists. The envelope never contracts, so growing it before the
// insert is safe even if the insert fails.
func (s *TaskService) CreateTask(ctx context.Context, t *model.Task) (int, error) {
	if !t.Range().Valid() {
		return 0, schedule.ErrInvalidDateRange
	}

	m, err := s.milestones.FindByID(ctx, t.MilestoneID)
	if err != nil {
		return 0, err
	}

	if schedule.ExtendMilestone(m, t.Range()) {
		if err := s.milestones.SaveRange(ctx, m); err != nil {
			return 0, err
		}
	}

	id, err := s.tasks.Insert(ctx, t)
	if err != nil {
		return 0, err
	}

	s.invalidateReadiness(ctx, t.MilestoneID)
	return id, nil
}

func (s *TaskService) GetTask(ctx context.Context, id int) (*model.Task, error) {
	t, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.AssigneeIDs, err = s.tasks.FindAssignees(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTaskDates moves a task to new bounds and persists the full
// cascade the move forces, atomically.
func (s *TaskService) UpdateTaskDates(ctx context.Context, taskID int, newRange model.DateRange, userID int) ([]*model.Task, error) {
	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.ApplyReschedule(ctx, t, newRange, userID)
}

// RescheduleResult carries everything one committed cascade changed, for
// the caller to publish or report.
type RescheduleResult struct {
	Closure   []*model.Task
	Shifts    []mq.TaskShift
	Milestone *model.Milestone
}

// ApplyReschedule runs the scheduling core for one task move and commits
// the whole closure (plus the expanded milestone) in one transaction.
// Either everything commits or nothing does.
func (s *TaskService) ApplyReschedule(ctx context.Context, t *model.Task, newRange model.DateRange, userID int) ([]*model.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := s.RescheduleInTx(ctx, tx, t, newRange, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.FinishReschedule(t.ID, userID, res)
	return res.Closure, nil
}

// RescheduleInTx computes and writes one task move's cascade inside the
// caller's transaction. The milestone row lock taken here serializes
// concurrent cascades on the same milestone. The caller commits and then
// calls FinishReschedule for metrics and events.
func (s *TaskService) RescheduleInTx(ctx context.Context, tx pgx.Tx, t *model.Task, newRange model.DateRange, userID int) (*RescheduleResult, error) {
	m, err := s.milestones.FindByIDForUpdate(ctx, tx, t.MilestoneID)
	if err != nil {
		return nil, err
	}

	// the envelope must cover the primary task's new bounds before the
	// closure containment check, or correct cascades would be rejected
	schedule.ExtendMilestone(m, newRange)

	closure, err := s.rescheduler.Reschedule(ctx, t, newRange, m)
	if err != nil {
		metrics.IncrementRescheduleFailure(rescheduleFailureReason(err))
		return nil, err
	}

	var shifts []mq.TaskShift
	for _, moved := range closure {
		old, err := s.tasks.FindByID(ctx, moved.ID)
		if err != nil {
			return nil, err
		}
		if old.Start.Equal(moved.Start) && old.End.Equal(moved.End) {
			continue
		}

		moved.UpdatedBy = userID
		if err := s.tasks.UpdateRange(ctx, tx, moved); err != nil {
			return nil, err
		}
		shifts = append(shifts, mq.TaskShift{
			TaskID:   moved.ID,
			OldStart: old.Start,
			OldEnd:   old.End,
			NewStart: moved.Start,
			NewEnd:   moved.End,
		})
	}

	if err := s.milestones.UpdateRange(ctx, tx, m); err != nil {
		return nil, err
	}

	return &RescheduleResult{Closure: closure, Shifts: shifts, Milestone: m}, nil
}

// FinishReschedule records metrics and publishes the reschedule event for
// a committed cascade.
func (s *TaskService) FinishReschedule(triggerTaskID, userID int, res *RescheduleResult) {
	metrics.RecordRescheduleCascade(len(res.Shifts))
	s.logger.Info("Reschedule committed",
		zap.Int("task_id", triggerTaskID),
		zap.Int("milestone_id", res.Milestone.ID),
		zap.Int("tasks_moved", len(res.Shifts)),
	)

	if len(res.Shifts) > 0 {
		s.publish(mq.RoutingTaskRescheduled, mq.TaskRescheduledPayload{
			MilestoneID: res.Milestone.ID,
			TriggerTask: triggerTaskID,
			Shifts:      res.Shifts,
			UpdatedBy:   userID,
			OccurredAt:  time.Now(),
		})
	}
}

// UpdateTaskStatus applies a status change after the predecessor gate
// allows it.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, taskID int, newStatus model.TaskStatus, userID int) error {
	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}

	if err := s.gate.Check(ctx, t, newStatus); err != nil {
		var blocked *schedule.StatusTransitionBlockedError
		if errors.As(err, &blocked) {
			metrics.IncrementRescheduleFailure("blocked_status")
		}
		return err
	}

	if newStatus == t.Status {
		return nil
	}

	if err := s.tasks.UpdateStatus(ctx, taskID, newStatus, userID); err != nil {
		return err
	}

	s.publish(mq.RoutingTaskStatusChanged, mq.TaskStatusChangedPayload{
		TaskID:     taskID,
		OldStatus:  string(t.Status),
		NewStatus:  string(newStatus),
		UpdatedBy:  userID,
		OccurredAt: time.Now(),
	})
	return nil
}

func (s *TaskService) UpdateTaskReadiness(ctx context.Context, taskID int, readiness *int, userID int) error {
	if readiness != nil && (*readiness < 0 || *readiness > 100) {
		return fmt.Errorf("readiness must be between 0 and 100")
	}

	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.UpdateReadiness(ctx, taskID, readiness, userID); err != nil {
		return err
	}
	s.invalidateReadiness(ctx, t.MilestoneID)
	return nil
}

func (s *TaskService) ReassignTask(ctx context.Context, taskID int, userIDs []int, userID int) error {
	old, err := s.tasks.FindAssignees(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.ReplaceAssignees(ctx, taskID, userIDs); err != nil {
		return err
	}

	s.publish(mq.RoutingTaskReassigned, mq.TaskReassignedPayload{
		TaskID:       taskID,
		OldAssignees: old,
		NewAssignees: userIDs,
		UpdatedBy:    userID,
		OccurredAt:   time.Now(),
	})
	return nil
}

// DeleteTask removes a task. Deleting a task that still participates in
// the connection graph is forbidden.
func (s *TaskService) DeleteTask(ctx context.Context, taskID int) error {
	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}

	count, err := s.conns.CountByTask(ctx, taskID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTaskHasConnections
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	s.invalidateReadiness(ctx, t.MilestoneID)
	return nil
}

// MilestoneReadiness returns the milestone's aggregate readiness,
// serving from the redis cache when warm.
func (s *TaskService) MilestoneReadiness(ctx context.Context, milestoneID int) (int, error) {
	key := readinessCacheKey(milestoneID)
	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if v, err := strconv.Atoi(cached); err == nil {
			return v, nil
		}
	}

	tasks, err := s.tasks.FindByMilestone(ctx, milestoneID)
	if err != nil {
		return 0, err
	}
	readiness := schedule.MilestoneReadiness(tasks)

	if err := s.rdb.Set(ctx, key, readiness, readinessCacheTTL).Err(); err != nil {
		s.logger.Warn("Failed to cache milestone readiness",
			zap.Int("milestone_id", milestoneID),
			zap.Error(err),
		)
	}
	return readiness, nil
}

func (s *TaskService) invalidateReadiness(ctx context.Context, milestoneID int) {
	if err := s.rdb.Del(ctx, readinessCacheKey(milestoneID)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate readiness cache",
			zap.Int("milestone_id", milestoneID),
			zap.Error(err),
		)
	}
}

// publish sends a notification event, logging failures without failing
// the committed operation. Delivery is the notification collaborator's
// concern.
func (s *TaskService) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func readinessCacheKey(milestoneID int) string {
	return fmt.Sprintf("milestone:%d:readiness", milestoneID)
}

func rescheduleFailureReason(err error) string {
	var oob *schedule.OutOfMilestoneBoundsError
	switch {
	case errors.As(err, &oob):
		return "out_of_bounds"
	case errors.Is(err, schedule.ErrInvalidDateRange):
		return "invalid_range"
	case errors.Is(err, schedule.ErrGraphCycle):
		return "graph_cycle"
	default:
		return "other"
	}
}
