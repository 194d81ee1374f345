package service

import (
	"context"

	"go.uber.org/zap"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/schedule"
)

// ConnectionService validates and stores dependency edges. Edges are
// checked against the endpoint tasks' current dates and against the
// graph, so the stored connection graph stays a DAG.
type ConnectionService struct {
	tasks  *repository.TaskRepository
	conns  *repository.ConnectionRepository
	logger *zap.Logger
}

func NewConnectionService(tasks *repository.TaskRepository, conns *repository.ConnectionRepository, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{tasks: tasks, conns: conns, logger: logger}
}

func (s *ConnectionService) Create(ctx context.Context, sourceID, targetID int, typ model.ConnectionType, userID int) (*model.Connection, error) {
	source, err := s.tasks.FindByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.tasks.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := schedule.ValidateConnection(typ, source, target); err != nil {
		return nil, err
	}

	// a path target -> ... -> source means this edge would close a cycle
	cyclic, err := s.conns.IsReachable(ctx, targetID, sourceID)
	if err != nil {
		return nil, err
	}
	if cyclic {
		return nil, &schedule.InvalidConnectionError{
			Message: "connection would create a dependency cycle",
		}
	}

	c := &model.Connection{
		SourceTaskID: sourceID,
		TargetTaskID: targetID,
		Type:         typ,
		UpdatedBy:    userID,
	}
	if _, err := s.conns.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateType re-validates the edge under its new type using the tasks'
// current dates, not the dates at creation time.
func (s *ConnectionService) UpdateType(ctx context.Context, id int, typ model.ConnectionType, userID int) (*model.Connection, error) {
	c, err := s.conns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	source, err := s.tasks.FindByID(ctx, c.SourceTaskID)
	if err != nil {
		return nil, err
	}
	target, err := s.tasks.FindByID(ctx, c.TargetTaskID)
	if err != nil {
		return nil, err
	}

	if err := schedule.ValidateConnection(typ, source, target); err != nil {
		return nil, err
	}

	if err := s.conns.UpdateType(ctx, id, typ, userID); err != nil {
		return nil, err
	}
	c.Type = typ
	c.UpdatedBy = userID
	return c, nil
}

func (s *ConnectionService) Delete(ctx context.Context, id int) error {
	return s.conns.Delete(ctx, id)
}

func (s *ConnectionService) ListByTask(ctx context.Context, taskID int, role model.ConnectionRole) ([]model.Connection, error) {
	return s.conns.FindByTask(ctx, taskID, role)
}
