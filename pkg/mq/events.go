package mq

import "time"

// Routing keys for the notification collaborator. The scheduling core
// never publishes; services publish from the core's return values.
const (
	RoutingTaskRescheduled   = "task.rescheduled"
	RoutingTaskStatusChanged = "task.status_changed"
	RoutingTaskReassigned    = "task.reassigned"
	RoutingProposalApproved  = "proposal.approved"
	RoutingProposalRejected  = "proposal.rejected"
)

// TaskShift describes one task's date move inside a cascade.
type TaskShift struct {
	TaskID   int       `json:"task_id"`
	OldStart time.Time `json:"old_start"`
	OldEnd   time.Time `json:"old_end"`
	NewStart time.Time `json:"new_start"`
	NewEnd   time.Time `json:"new_end"`
}

type TaskRescheduledPayload struct {
	MilestoneID int         `json:"milestone_id"`
	TriggerTask int         `json:"trigger_task_id"`
	Shifts      []TaskShift `json:"shifts"`
	UpdatedBy   int         `json:"updated_by"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

type TaskStatusChangedPayload struct {
	TaskID     int       `json:"task_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	UpdatedBy  int       `json:"updated_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

type TaskReassignedPayload struct {
	TaskID       int       `json:"task_id"`
	OldAssignees []int     `json:"old_assignees"`
	NewAssignees []int     `json:"new_assignees"`
	UpdatedBy    int       `json:"updated_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type ProposalDecidedPayload struct {
	ProposalID   int       `json:"proposal_id"`
	TaskID       int       `json:"task_id"`
	DecidedBy    int       `json:"decided_by"`
	AutoRejected bool      `json:"auto_rejected,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
