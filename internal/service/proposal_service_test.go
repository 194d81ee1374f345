package service

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/schedule"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// memTx is a no-op pgx.Tx recording whether the transaction committed.
type memTx struct {
	committed  bool
	rolledBack bool
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}
func (t *memTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

type memPool struct {
	txs []*memTx
}

func (p *memPool) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &memTx{}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func (p *memPool) lastTx() *memTx {
	if len(p.txs) == 0 {
		return nil
	}
	return p.txs[len(p.txs)-1]
}

// memProposalStore keeps proposals in memory with the same pending-only
// update guard the real repository enforces in SQL.
type memProposalStore struct {
	byID   map[int]*model.ChangeProposal
	nextID int
}

func newMemProposalStore(proposals ...*model.ChangeProposal) *memProposalStore {
	s := &memProposalStore{byID: make(map[int]*model.ChangeProposal)}
	for _, p := range proposals {
		s.byID[p.ID] = p
		if p.ID > s.nextID {
			s.nextID = p.ID
		}
	}
	return s
}

func (s *memProposalStore) Insert(_ context.Context, p *model.ChangeProposal) (int, error) {
	s.nextID++
	p.ID = s.nextID
	s.byID[p.ID] = p
	return p.ID, nil
}

func (s *memProposalStore) FindByID(_ context.Context, id int) (*model.ChangeProposal, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (s *memProposalStore) FindPendingByTasks(_ context.Context, _ pgx.Tx, taskIDs []int, excludeID int) ([]model.ChangeProposal, error) {
	wanted := make(map[int]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = true
	}

	var out []model.ChangeProposal
	for _, p := range s.byID {
		if p.ID != excludeID && p.Status == model.ProposalPending && wanted[p.TaskID] {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memProposalStore) UpdateStatus(_ context.Context, _ pgx.Tx, id int, status model.ProposalStatus) error {
	p, ok := s.byID[id]
	if !ok || p.Status != model.ProposalPending {
		return repository.ErrNotFound
	}
	p.Status = status
	return nil
}

type memTaskFinder struct {
	byID map[int]*model.Task
}

func (f *memTaskFinder) FindByID(_ context.Context, id int) (*model.Task, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

// stubRunner returns a canned closure (or error) instead of walking a
// real graph.
type stubRunner struct {
	closure     []*model.Task
	err         error
	finishCalls int
}

func (r *stubRunner) RescheduleInTx(_ context.Context, _ pgx.Tx, _ *model.Task, _ model.DateRange, _ int) (*RescheduleResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &RescheduleResult{Closure: r.closure, Milestone: &model.Milestone{ID: 1}}, nil
}

func (r *stubRunner) FinishReschedule(_, _ int, _ *RescheduleResult) {
	r.finishCalls++
}

type memGuard struct {
	held map[string]bool
}

func newMemGuard() *memGuard { return &memGuard{held: make(map[string]bool)} }

func (g *memGuard) key(operation string, id int) string {
	return fmt.Sprintf("%s:%d", operation, id)
}

func (g *memGuard) AcquireOnce(_ context.Context, operation string, id int) bool {
	k := g.key(operation, id)
	if g.held[k] {
		return false
	}
	g.held[k] = true
	return true
}

func (g *memGuard) Release(_ context.Context, operation string, id int) {
	delete(g.held, g.key(operation, id))
}

func pending(id, taskID int) *model.ChangeProposal {
	start := day(2022, 2, 1)
	return &model.ChangeProposal{
		ID:            id,
		TaskID:        taskID,
		ProposedStart: &start,
		Status:        model.ProposalPending,
		CreatedBy:     1,
	}
}

func proposalServiceFor(pool *memPool, proposals *memProposalStore, tasks *memTaskFinder, runner *stubRunner, guard *memGuard) *ProposalService {
	return NewProposalService(pool, proposals, tasks, nil, nil, runner, nil, guard, zap.NewNop())
}

func TestApproveRejectsPendingSiblings(t *testing.T) {
	taskA := &model.Task{ID: 1, MilestoneID: 1, Start: day(2022, 1, 1), End: day(2022, 1, 10)}
	taskB := &model.Task{ID: 2, MilestoneID: 1, Start: day(2022, 1, 10), End: day(2022, 1, 20)}
	tasks := &memTaskFinder{byID: map[int]*model.Task{1: taskA, 2: taskB}}

	decided := pending(4, 2)
	decided.Status = model.ProposalRejected
	proposals := newMemProposalStore(
		pending(1, 1), // the one being approved
		pending(2, 2), // sibling on a cascaded task
		pending(3, 1), // sibling on the approved task itself
		decided,       // already decided, must stay untouched
	)

	pool := &memPool{}
	runner := &stubRunner{closure: []*model.Task{taskA, taskB}}
	svc := proposalServiceFor(pool, proposals, tasks, runner, newMemGuard())

	closure, err := svc.Approve(context.Background(), 1, 9)
	require.NoError(t, err)
	require.Len(t, closure, 2)

	assert.Equal(t, model.ProposalApproved, proposals.byID[1].Status)
	assert.Equal(t, model.ProposalRejected, proposals.byID[2].Status, "pending sibling on cascaded task auto-rejected")
	assert.Equal(t, model.ProposalRejected, proposals.byID[3].Status, "pending sibling on approved task auto-rejected")
	assert.Equal(t, model.ProposalRejected, decided.Status)

	require.NotNil(t, pool.lastTx())
	assert.True(t, pool.lastTx().committed, "decision and cascade commit in one transaction")
	assert.Equal(t, 1, runner.finishCalls)
}

func TestApproveFailureLeavesSiblingsPendingAndRetryable(t *testing.T) {
	taskA := &model.Task{ID: 1, MilestoneID: 1, Start: day(2022, 1, 1), End: day(2022, 1, 10)}
	tasks := &memTaskFinder{byID: map[int]*model.Task{1: taskA}}
	proposals := newMemProposalStore(pending(1, 1), pending(2, 1))

	pool := &memPool{}
	runner := &stubRunner{err: &schedule.OutOfMilestoneBoundsError{
		TaskID: 1, Start: day(2022, 1, 1), End: day(2022, 3, 1),
	}}
	guard := newMemGuard()
	svc := proposalServiceFor(pool, proposals, tasks, runner, guard)

	_, err := svc.Approve(context.Background(), 1, 9)
	var oob *schedule.OutOfMilestoneBoundsError
	require.ErrorAs(t, err, &oob)

	assert.Equal(t, model.ProposalPending, proposals.byID[1].Status, "failed approval leaves the proposal pending")
	assert.Equal(t, model.ProposalPending, proposals.byID[2].Status, "failed approval leaves siblings pending")
	require.NotNil(t, pool.lastTx())
	assert.False(t, pool.lastTx().committed)
	assert.True(t, pool.lastTx().rolledBack)
	assert.Equal(t, 0, runner.finishCalls)

	// the failure released the dedup key: once the caller fixes the
	// input (say, widens the milestone) the retry must go through
	runner.err = nil
	runner.closure = []*model.Task{taskA}
	closure, err := svc.Approve(context.Background(), 1, 9)
	require.NoError(t, err, "retry after a failed approval must not be absorbed by the dedup guard")
	require.Len(t, closure, 1)
	assert.Equal(t, model.ProposalApproved, proposals.byID[1].Status)
}

func TestApproveAlreadyDecided(t *testing.T) {
	taskA := &model.Task{ID: 1, MilestoneID: 1, Start: day(2022, 1, 1), End: day(2022, 1, 10)}
	tasks := &memTaskFinder{byID: map[int]*model.Task{1: taskA}}

	approved := pending(1, 1)
	approved.Status = model.ProposalApproved
	proposals := newMemProposalStore(approved)

	svc := proposalServiceFor(&memPool{}, proposals, tasks, &stubRunner{}, newMemGuard())

	_, err := svc.Approve(context.Background(), 1, 9)
	assert.ErrorIs(t, err, ErrProposalDecided)
}

func TestApproveDuplicateRequestAbsorbed(t *testing.T) {
	taskA := &model.Task{ID: 1, MilestoneID: 1, Start: day(2022, 1, 1), End: day(2022, 1, 10)}
	tasks := &memTaskFinder{byID: map[int]*model.Task{1: taskA}}
	proposals := newMemProposalStore(pending(1, 1))

	guard := newMemGuard()
	guard.AcquireOnce(context.Background(), "proposal_approve", 1) // an in-flight approval holds the key

	svc := proposalServiceFor(&memPool{}, proposals, tasks, &stubRunner{closure: []*model.Task{taskA}}, guard)

	_, err := svc.Approve(context.Background(), 1, 9)
	assert.ErrorIs(t, err, ErrProposalDecided)
	assert.Equal(t, model.ProposalPending, proposals.byID[1].Status, "duplicate decides nothing")
}

func TestRejectProposal(t *testing.T) {
	taskA := &model.Task{ID: 1, MilestoneID: 1, Start: day(2022, 1, 1), End: day(2022, 1, 10)}
	tasks := &memTaskFinder{byID: map[int]*model.Task{1: taskA}}
	proposals := newMemProposalStore(pending(1, 1))

	pool := &memPool{}
	svc := proposalServiceFor(pool, proposals, tasks, &stubRunner{}, newMemGuard())

	require.NoError(t, svc.Reject(context.Background(), 1, 9))
	assert.Equal(t, model.ProposalRejected, proposals.byID[1].Status)
	assert.True(t, pool.lastTx().committed)

	err := svc.Reject(context.Background(), 1, 9)
	assert.ErrorIs(t, err, ErrProposalDecided, "a decided proposal is immutable")
}
