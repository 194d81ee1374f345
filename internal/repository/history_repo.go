package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/pkg/metrics"
)

type HistoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHistoryRepository(db *pgxpool.Pool, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

func (r *HistoryRepository) Insert(ctx context.Context, h *model.TaskHistory) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "task_history", time.Since(start)) }()

	query := `
        INSERT INTO task_history (task_id, kind, detail, actor_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, h.TaskID, h.Kind, h.Detail, h.ActorID).
		Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert history entry",
			zap.Error(err), zap.Int("task_id", h.TaskID), zap.String("kind", h.Kind))
		return err
	}
	return nil
}

func (r *HistoryRepository) FindByTask(ctx context.Context, taskID int) ([]model.TaskHistory, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "task_history", time.Since(start)) }()

	query := `
        SELECT id, task_id, kind, detail, actor_id, created_at
        FROM task_history
        WHERE task_id = $1
        ORDER BY created_at DESC, id DESC
    `
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.TaskHistory
	for rows.Next() {
		var h model.TaskHistory
		if err := rows.Scan(&h.ID, &h.TaskID, &h.Kind, &h.Detail, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
