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

var ErrNotFound = errors.New("record not found")

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) (int, error) {
	r.logger.Debug("Inserting task",
		zap.Int("milestone_id", t.MilestoneID),
		zap.String("name", t.Name),
	)
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "tasks", time.Since(start)) }()

	query := `
        INSERT INTO tasks (milestone_id, name, start_date, end_date, status, readiness, estimated_hours, depends_on_user_id, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		t.MilestoneID,
		t.Name,
		t.Start,
		t.End,
		t.Status,
		t.Readiness,
		t.EstimatedHours,
		t.DependsOnUserID,
		t.UpdatedBy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int("milestone_id", t.MilestoneID),
		)
		return 0, err
	}

	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("milestone_id", t.MilestoneID),
	)
	return t.ID, nil
}

const taskColumns = `id, milestone_id, name, start_date, end_date, status, readiness, estimated_hours, depends_on_user_id, updated_by, created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.MilestoneID,
		&t.Name,
		&t.Start,
		&t.End,
		&t.Status,
		&t.Readiness,
		&t.EstimatedHours,
		&t.DependsOnUserID,
		&t.UpdatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int) (*model.Task, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "tasks", time.Since(start)) }()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRow(ctx, query, id))
}

func (r *TaskRepository) FindByMilestone(ctx context.Context, milestoneID int) ([]model.Task, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "tasks", time.Since(start)) }()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE milestone_id = $1 ORDER BY start_date ASC, id ASC`
	rows, err := r.db.Query(ctx, query, milestoneID)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err), zap.Int("milestone_id", milestoneID))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateRange persists one task's new bounds inside the caller's
// transaction. Closure updates always go through a transaction so a late
// bound violation rolls back every earlier write.
func (r *TaskRepository) UpdateRange(ctx context.Context, tx pgx.Tx, t *model.Task) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "tasks", time.Since(start)) }()

	query := `
        UPDATE tasks
        SET start_date = $1, end_date = $2, updated_by = $3, updated_at = NOW()
        WHERE id = $4
    `
	_, err := tx.Exec(ctx, query, t.Start, t.End, t.UpdatedBy, t.ID)
	if err != nil {
		r.logger.Error("Failed to update task range",
			zap.Error(err),
			zap.Int("task_id", t.ID),
		)
	}
	return err
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id int, status model.TaskStatus, updatedBy int) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "tasks", time.Since(start)) }()

	query := `UPDATE tasks SET status = $1, updated_by = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, status, updatedBy, id)
	if err != nil {
		r.logger.Error("Failed to update task status", zap.Error(err), zap.Int("task_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) UpdateReadiness(ctx context.Context, id int, readiness *int, updatedBy int) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "tasks", time.Since(start)) }()

	query := `UPDATE tasks SET readiness = $1, updated_by = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, readiness, updatedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("delete", "tasks", time.Since(start)) }()

	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Error(err), zap.Int("task_id", id))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Task deleted", zap.Int("task_id", id))
	return nil
}

func (r *TaskRepository) FindAssignees(ctx context.Context, taskID int) ([]int, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY user_id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TaskRepository) ReplaceAssignees(ctx context.Context, taskID int, userIDs []int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, taskID); err != nil {
		return err
	}
	for _, uid := range userIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)`, taskID, uid); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
