package model

import "time"

// ConnectionType is a directed temporal dependency between two tasks.
type ConnectionType string

const (
	FinishToStart  ConnectionType = "finish_to_start"
	StartToStart   ConnectionType = "start_to_start"
	FinishToFinish ConnectionType = "finish_to_finish"
)

func (t ConnectionType) Valid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish:
		return true
	}
	return false
}

// ConnectionRole selects which endpoint of an edge a task plays when
// querying adjacency.
type ConnectionRole string

const (
	RoleSource ConnectionRole = "source"
	RoleTarget ConnectionRole = "target"
)

type Connection struct {
	ID           int            `json:"id"`
	SourceTaskID int            `json:"source_task_id"`
	TargetTaskID int            `json:"target_task_id"`
	Type         ConnectionType `json:"type"`
	UpdatedBy    int            `json:"updated_by"`
	CreatedAt    time.Time      `json:"created_at"`
}
