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

type ConnectionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewConnectionRepository(db *pgxpool.Pool, logger *zap.Logger) *ConnectionRepository {
	return &ConnectionRepository{db: db, logger: logger}
}

const connectionColumns = `id, source_task_id, target_task_id, type, updated_by, created_at`

func scanConnection(row pgx.Row) (*model.Connection, error) {
	var c model.Connection
	err := row.Scan(
		&c.ID,
		&c.SourceTaskID,
		&c.TargetTaskID,
		&c.Type,
		&c.UpdatedBy,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConnectionRepository) Insert(ctx context.Context, c *model.Connection) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "connections", time.Since(start)) }()

	query := `
        INSERT INTO connections (source_task_id, target_task_id, type, updated_by)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		c.SourceTaskID,
		c.TargetTaskID,
		c.Type,
		c.UpdatedBy,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert connection",
			zap.Error(err),
			zap.Int("source_task_id", c.SourceTaskID),
			zap.Int("target_task_id", c.TargetTaskID),
		)
		return 0, err
	}

	r.logger.Info("Connection inserted",
		zap.Int("id", c.ID),
		zap.Int("source_task_id", c.SourceTaskID),
		zap.Int("target_task_id", c.TargetTaskID),
		zap.String("type", string(c.Type)),
	)
	return c.ID, nil
}

func (r *ConnectionRepository) FindByID(ctx context.Context, id int) (*model.Connection, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "connections", time.Since(start)) }()

	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`
	return scanConnection(r.db.QueryRow(ctx, query, id))
}

// FindByTask returns the edges where the task plays the given role.
func (r *ConnectionRepository) FindByTask(ctx context.Context, taskID int, role model.ConnectionRole) ([]model.Connection, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "connections", time.Since(start)) }()

	column := "source_task_id"
	if role == model.RoleTarget {
		column = "target_task_id"
	}
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE ` + column + ` = $1 ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to query connections", zap.Error(err), zap.Int("task_id", taskID))
		return nil, err
	}
	defer rows.Close()

	var conns []model.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepository) CountByTask(ctx context.Context, taskID int) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "connections", time.Since(start)) }()

	var count int
	query := `SELECT COUNT(*) FROM connections WHERE source_task_id = $1 OR target_task_id = $1`
	if err := r.db.QueryRow(ctx, query, taskID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ConnectionRepository) UpdateType(ctx context.Context, id int, typ model.ConnectionType, updatedBy int) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "connections", time.Since(start)) }()

	query := `UPDATE connections SET type = $1, updated_by = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, typ, updatedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConnectionRepository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("delete", "connections", time.Since(start)) }()

	tag, err := r.db.Exec(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Connection deleted", zap.Int("id", id))
	return nil
}

// IsReachable reports whether target is reachable from source by
// following connection edges. Used to reject an edge that would close a
// cycle before it enters the graph.
func (r *ConnectionRepository) IsReachable(ctx context.Context, sourceID, targetID int) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("select", "connections", time.Since(start)) }()

	query := `
        WITH RECURSIVE reachable(task_id) AS (
            SELECT target_task_id FROM connections WHERE source_task_id = $1
            UNION
            SELECT c.target_task_id
            FROM connections c
            JOIN reachable r ON c.source_task_id = r.task_id
        )
        SELECT EXISTS (SELECT 1 FROM reachable WHERE task_id = $2)
    `
	var found bool
	if err := r.db.QueryRow(ctx, query, sourceID, targetID).Scan(&found); err != nil {
		r.logger.Error("Reachability query failed",
			zap.Error(err),
			zap.Int("source_task_id", sourceID),
			zap.Int("target_task_id", targetID),
		)
		return false, err
	}
	return found, nil
}
