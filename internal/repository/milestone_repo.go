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

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{db: db, logger: logger}
}

func (r *MilestoneRepository) Insert(ctx context.Context, m *model.Milestone) (int, error) {
	r.logger.Debug("Inserting milestone",
		zap.Int("project_id", m.ProjectID),
		zap.String("name", m.Name),
	)
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "milestones", time.Since(start)) }()

	query := `
        INSERT INTO milestones (project_id, name, start_date, end_date, original_start, original_end)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		m.ProjectID,
		m.Name,
		m.Start,
		m.End,
		m.OriginalStart,
		m.OriginalEnd,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Milestone inserted successfully",
		zap.Int("id", m.ID),
		zap.Int("project_id", m.ProjectID),
	)
	return m.ID, nil
}

const milestoneColumns = `id, project_id, name, start_date, end_date, original_start, original_end, created_at, updated_at`

func scanMilestone(row pgx.Row) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Name,
		&m.Start,
		&m.End,
		&m.OriginalStart,
		&m.OriginalEnd,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepository) FindByID(ctx context.Context, id int) (*model.Milestone, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "milestones", time.Since(start)) }()

	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1`
	return scanMilestone(r.db.QueryRow(ctx, query, id))
}

// FindByIDForUpdate locks the milestone row for the rest of the
// transaction. Concurrent cascades on the same milestone serialize on
// this lock.
func (r *MilestoneRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Milestone, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select_for_update", "milestones", time.Since(start)) }()

	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1 FOR UPDATE`
	return scanMilestone(tx.QueryRow(ctx, query, id))
}

func (r *MilestoneRepository) FindByProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "milestones", time.Since(start)) }()

	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE project_id = $1 ORDER BY start_date ASC, id ASC`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to find milestones", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var milestones []model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}

// UpdateRange persists a (possibly expanded) envelope inside the caller's
// transaction, alongside the task closure it was expanded for.
func (r *MilestoneRepository) UpdateRange(ctx context.Context, tx pgx.Tx, m *model.Milestone) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "milestones", time.Since(start)) }()

	query := `UPDATE milestones SET start_date = $1, end_date = $2, updated_at = NOW() WHERE id = $3`
	_, err := tx.Exec(ctx, query, m.Start, m.End, m.ID)
	if err != nil {
		r.logger.Error("Failed to update milestone range",
			zap.Error(err),
			zap.Int("milestone_id", m.ID),
		)
	}
	return err
}

// SaveRange persists the envelope outside any transaction, for paths
// that only grow the milestone before inserting a task.
func (r *MilestoneRepository) SaveRange(ctx context.Context, m *model.Milestone) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "milestones", time.Since(start)) }()

	query := `UPDATE milestones SET start_date = $1, end_date = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, m.Start, m.End, m.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateOriginalRange rewrites the baseline envelope. Only legal while
// the owning project is still in planning; the service enforces that.
func (r *MilestoneRepository) UpdateOriginalRange(ctx context.Context, m *model.Milestone) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "milestones", time.Since(start)) }()

	query := `UPDATE milestones SET original_start = $1, original_end = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, m.OriginalStart, m.OriginalEnd, m.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
