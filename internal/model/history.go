package model

import "time"

// TaskHistory is one audit record for a task, written by the worker from
// the event stream.
type TaskHistory struct {
	ID        int       `json:"id"`
	TaskID    int       `json:"task_id"`
	Kind      string    `json:"kind"` // rescheduled, status_changed, reassigned
	Detail    string    `json:"detail"`
	ActorID   int       `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}
