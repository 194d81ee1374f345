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

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "projects", time.Since(start)) }()

	query := `
        INSERT INTO projects (owner_id, name, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, p.OwnerID, p.Name, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err), zap.Int("owner_id", p.OwnerID))
		return 0, err
	}

	r.logger.Info("Project inserted", zap.Int("id", p.ID), zap.Int("owner_id", p.OwnerID))
	return p.ID, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int) (*model.Project, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "projects", time.Since(start)) }()

	query := `SELECT id, owner_id, name, status, created_at, updated_at FROM projects WHERE id = $1`
	var p model.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id int, status model.ProjectStatus) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "projects", time.Since(start)) }()

	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
