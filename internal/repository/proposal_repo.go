package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/pkg/metrics"
)

type ProposalRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProposalRepository(db *pgxpool.Pool, logger *zap.Logger) *ProposalRepository {
	return &ProposalRepository{db: db, logger: logger}
}

const proposalColumns = `id, task_id, proposed_start, proposed_end, status, created_by, created_at, decided_at`

func scanProposal(row pgx.Row) (*model.ChangeProposal, error) {
	var p model.ChangeProposal
	err := row.Scan(
		&p.ID,
		&p.TaskID,
		&p.ProposedStart,
		&p.ProposedEnd,
		&p.Status,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProposalRepository) Insert(ctx context.Context, p *model.ChangeProposal) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "change_proposals", time.Since(start)) }()

	query := `
        INSERT INTO change_proposals (task_id, proposed_start, proposed_end, status, created_by)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		p.TaskID,
		p.ProposedStart,
		p.ProposedEnd,
		p.Status,
		p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert proposal", zap.Error(err), zap.Int("task_id", p.TaskID))
		return 0, err
	}

	r.logger.Info("Proposal inserted", zap.Int("id", p.ID), zap.Int("task_id", p.TaskID))
	return p.ID, nil
}

func (r *ProposalRepository) FindByID(ctx context.Context, id int) (*model.ChangeProposal, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "change_proposals", time.Since(start)) }()

	query := `SELECT ` + proposalColumns + ` FROM change_proposals WHERE id = $1`
	return scanProposal(r.db.QueryRow(ctx, query, id))
}

func (r *ProposalRepository) FindByTask(ctx context.Context, taskID int) ([]model.ChangeProposal, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "change_proposals", time.Since(start)) }()

	query := `SELECT ` + proposalColumns + ` FROM change_proposals WHERE task_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []model.ChangeProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

// FindPendingByTasks returns pending proposals referencing any of the
// given tasks, excluding one proposal id. Feeds the sibling
// auto-rejection after an approval.
func (r *ProposalRepository) FindPendingByTasks(ctx context.Context, tx pgx.Tx, taskIDs []int, excludeID int) ([]model.ChangeProposal, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "change_proposals", time.Since(start)) }()

	query := `
        SELECT ` + proposalColumns + `
        FROM change_proposals
        WHERE status = $1 AND task_id = ANY($2) AND id <> $3
        ORDER BY id ASC
    `
	rows, err := tx.Query(ctx, query, model.ProposalPending, taskIDs, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []model.ChangeProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

// UpdateStatus moves a proposal out of pending inside the caller's
// transaction. Decided proposals stay immutable; the WHERE clause makes
// a second decision a no-op surfaced as ErrNotFound.
func (r *ProposalRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int, status model.ProposalStatus) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "change_proposals", time.Since(start)) }()

	query := `
        UPDATE change_proposals
        SET status = $1, decided_at = NOW()
        WHERE id = $2 AND status = $3
    `
	tag, err := tx.Exec(ctx, query, status, id, model.ProposalPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
