package model

import "time"

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

type Task struct {
	ID              int        `json:"id"`
	MilestoneID     int        `json:"milestone_id"`
	Name            string     `json:"name"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	Status          TaskStatus `json:"status"`
	Readiness       *int       `json:"readiness,omitempty"` // 0-100 estimate, nil when not reported
	EstimatedHours  *int       `json:"estimated_hours,omitempty"`
	DependsOnUserID *int       `json:"depends_on_user_id,omitempty"`
	AssigneeIDs     []int      `json:"assignee_ids,omitempty"`
	UpdatedBy       int        `json:"updated_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t *Task) Range() DateRange {
	return DateRange{Start: t.Start, End: t.End}
}

// SetRange applies new bounds, keeping Start/End as the single source of truth.
func (t *Task) SetRange(r DateRange) {
	t.Start = r.Start
	t.End = r.End
}

// ReadinessOrZero treats an unreported readiness as 0 for aggregation.
func (t *Task) ReadinessOrZero() int {
	if t.Readiness == nil {
		return 0
	}
	return *t.Readiness
}
