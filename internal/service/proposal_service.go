package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/schedule"
	"planboard/pkg/metrics"
	"planboard/pkg/mq"
)

var ErrProposalDecided = errors.New("proposal has already been decided")

// TxBeginner opens transactions. Satisfied by pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ProposalStore is the narrow persistence contract the proposal service
// needs. Satisfied by repository.ProposalRepository.
type ProposalStore interface {
	Insert(ctx context.Context, p *model.ChangeProposal) (int, error)
	FindByID(ctx context.Context, id int) (*model.ChangeProposal, error)
	FindPendingByTasks(ctx context.Context, tx pgx.Tx, taskIDs []int, excludeID int) ([]model.ChangeProposal, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.ProposalStatus) error
}

// TaskFinder reads tasks. Satisfied by repository.TaskRepository.
type TaskFinder interface {
	FindByID(ctx context.Context, id int) (*model.Task, error)
}

// MilestoneFinder reads milestones. Satisfied by
// repository.MilestoneRepository.
type MilestoneFinder interface {
	FindByID(ctx context.Context, id int) (*model.Milestone, error)
}

// RescheduleRunner executes one task move as part of a larger
// transaction. Satisfied by TaskService.
type RescheduleRunner interface {
	RescheduleInTx(ctx context.Context, tx pgx.Tx, t *model.Task, newRange model.DateRange, userID int) (*RescheduleResult, error)
	FinishReschedule(triggerTaskID, userID int, res *RescheduleResult)
}

// OnceGuard makes retried mutations idempotent. Satisfied by
// util.Deduper.
type OnceGuard interface {
	AcquireOnce(ctx context.Context, operation string, id int) bool
	Release(ctx context.Context, operation string, id int)
}

// ProposalService turns approved change proposals into reschedules. An
// approval persists the cascade and auto-rejects every other pending
// proposal touching any task in the closure, rather than leaving the
// operator to reconcile conflicting proposals by hand.
type ProposalService struct {
	pool        TxBeginner
	proposals   ProposalStore
	tasks       TaskFinder
	milestones  MilestoneFinder
	rescheduler *schedule.Rescheduler
	runner      RescheduleRunner
	publisher   *mq.Publisher
	deduper     OnceGuard
	logger      *zap.Logger
}

func NewProposalService(
	pool TxBeginner,
	proposals ProposalStore,
	tasks TaskFinder,
	milestones MilestoneFinder,
	rescheduler *schedule.Rescheduler,
	runner RescheduleRunner,
	publisher *mq.Publisher,
	deduper OnceGuard,
	logger *zap.Logger,
) *ProposalService {
	return &ProposalService{
		pool:        pool,
		proposals:   proposals,
		tasks:       tasks,
		milestones:  milestones,
		rescheduler: rescheduler,
		runner:      runner,
		publisher:   publisher,
		deduper:     deduper,
		logger:      logger,
	}
}

func (s *ProposalService) Create(ctx context.Context, taskID int, proposedStart, proposedEnd *time.Time, userID int) (*model.ChangeProposal, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	p := &model.ChangeProposal{
		TaskID:        taskID,
		ProposedStart: proposedStart,
		ProposedEnd:   proposedEnd,
		Status:        model.ProposalPending,
		CreatedBy:     userID,
	}
	if !p.EffectiveRange(task).Valid() {
		return nil, schedule.ErrInvalidDateRange
	}

	if _, err := s.proposals.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProposalService) Get(ctx context.Context, id int) (*model.ChangeProposal, error) {
	return s.proposals.FindByID(ctx, id)
}

// Preview computes the closure an approval would persist, without
// persisting anything. The milestone is expanded on an in-memory copy
// only.
func (s *ProposalService) Preview(ctx context.Context, proposalID int) ([]*model.Task, error) {
	p, err := s.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, p.TaskID)
	if err != nil {
		return nil, err
	}
	m, err := s.milestones.FindByID(ctx, task.MilestoneID)
	if err != nil {
		return nil, err
	}

	newRange := p.EffectiveRange(task)
	schedule.ExtendMilestone(m, newRange)
	return s.rescheduler.Reschedule(ctx, task, newRange, m)
}

// Approve applies the proposal through the rescheduler, then rejects the
// pending siblings its cascade invalidated. Retried approvals are
// absorbed by the dedup guard.
func (s *ProposalService) Approve(ctx context.Context, proposalID, userID int) ([]*model.Task, error) {
	if !s.deduper.AcquireOnce(ctx, "proposal_approve", proposalID) {
		return nil, ErrProposalDecided
	}

	// the dedup key may only outlive this call for committed work; a
	// failed attempt (out-of-bounds cascade, stale proposal) must stay
	// retryable once the caller fixes the input
	committed := false
	defer func() {
		if !committed {
			s.deduper.Release(ctx, "proposal_approve", proposalID)
		}
	}()

	p, err := s.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.ProposalPending {
		return nil, ErrProposalDecided
	}

	task, err := s.tasks.FindByID(ctx, p.TaskID)
	if err != nil {
		return nil, err
	}

	// the cascade, the proposal decision and the sibling rejections all
	// commit together or not at all
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := s.runner.RescheduleInTx(ctx, tx, task, p.EffectiveRange(task), userID)
	if err != nil {
		return nil, err
	}

	if err := s.proposals.UpdateStatus(ctx, tx, proposalID, model.ProposalApproved); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProposalDecided
		}
		return nil, err
	}

	taskIDs := make([]int, 0, len(res.Closure))
	for _, t := range res.Closure {
		taskIDs = append(taskIDs, t.ID)
	}
	siblings, err := s.proposals.FindPendingByTasks(ctx, tx, taskIDs, proposalID)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if err := s.proposals.UpdateStatus(ctx, tx, sib.ID, model.ProposalRejected); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	s.runner.FinishReschedule(task.ID, userID, res)
	metrics.IncrementProposalDecision("approved")
	s.publish(mq.RoutingProposalApproved, mq.ProposalDecidedPayload{
		ProposalID: proposalID,
		TaskID:     p.TaskID,
		DecidedBy:  userID,
		OccurredAt: time.Now(),
	})

	for _, sib := range siblings {
		metrics.IncrementProposalDecision("auto_rejected")
		s.publish(mq.RoutingProposalRejected, mq.ProposalDecidedPayload{
			ProposalID:   sib.ID,
			TaskID:       sib.TaskID,
			DecidedBy:    userID,
			AutoRejected: true,
			OccurredAt:   time.Now(),
		})
	}

	s.logger.Info("Proposal approved",
		zap.Int("proposal_id", proposalID),
		zap.Int("task_id", p.TaskID),
		zap.Int("siblings_rejected", len(siblings)),
	)
	return res.Closure, nil
}

func (s *ProposalService) Reject(ctx context.Context, proposalID, userID int) error {
	p, err := s.proposals.FindByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if p.Status != model.ProposalPending {
		return ErrProposalDecided
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.proposals.UpdateStatus(ctx, tx, proposalID, model.ProposalRejected); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProposalDecided
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	metrics.IncrementProposalDecision("rejected")
	s.publish(mq.RoutingProposalRejected, mq.ProposalDecidedPayload{
		ProposalID: proposalID,
		TaskID:     p.TaskID,
		DecidedBy:  userID,
		OccurredAt: time.Now(),
	})
	return nil
}

func (s *ProposalService) publish(routingKey string, payload any) {
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
