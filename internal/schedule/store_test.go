package schedule

import (
	"context"
	"fmt"
	"time"

	"planboard/internal/model"
)

// memStore is an in-memory GraphStore for exercising the core without a
// database.
type memStore struct {
	tasks map[int]*model.Task
	conns []model.Connection
}

func newMemStore(tasks ...*model.Task) *memStore {
	s := &memStore{tasks: make(map[int]*model.Task)}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *memStore) connect(id, sourceID, targetID int, typ model.ConnectionType) {
	s.conns = append(s.conns, model.Connection{
		ID:           id,
		SourceTaskID: sourceID,
		TargetTaskID: targetID,
		Type:         typ,
	})
}

func (s *memStore) FindConnections(_ context.Context, taskID int, role model.ConnectionRole) ([]model.Connection, error) {
	var out []model.Connection
	for _, c := range s.conns {
		if role == model.RoleSource && c.SourceTaskID == taskID {
			out = append(out, c)
		}
		if role == model.RoleTarget && c.TargetTaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) FindTask(_ context.Context, id int) (*model.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d not found", id)
	}
	return t, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func task(id int, name string, start, end time.Time) *model.Task {
	return &model.Task{
		ID:          id,
		MilestoneID: 1,
		Name:        name,
		Start:       start,
		End:         end,
		Status:      model.TaskNotStarted,
	}
}

func milestone(start, end time.Time) *model.Milestone {
	return &model.Milestone{ID: 1, ProjectID: 1, Name: "m1", Start: start, End: end}
}
