package repository

import (
	"context"

	"planboard/internal/model"
)

// Graph adapts the task and connection repositories to the adjacency
// contract the scheduling core reads through. Reads run against the pool;
// callers serialize overlapping cascades with the milestone row lock
// before walking the graph.
type Graph struct {
	tasks *TaskRepository
	conns *ConnectionRepository
}

func NewGraph(tasks *TaskRepository, conns *ConnectionRepository) *Graph {
	return &Graph{tasks: tasks, conns: conns}
}

func (g *Graph) FindConnections(ctx context.Context, taskID int, role model.ConnectionRole) ([]model.Connection, error) {
	return g.conns.FindByTask(ctx, taskID, role)
}

func (g *Graph) FindTask(ctx context.Context, id int) (*model.Task, error) {
	return g.tasks.FindByID(ctx, id)
}
