package model

import "time"

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// ChangeProposal is a suggested date revision for one task. A nil bound
// means "keep the task's current bound". Once decided it is immutable.
type ChangeProposal struct {
	ID            int            `json:"id"`
	TaskID        int            `json:"task_id"`
	ProposedStart *time.Time     `json:"proposed_start,omitempty"`
	ProposedEnd   *time.Time     `json:"proposed_end,omitempty"`
	Status        ProposalStatus `json:"status"`
	CreatedBy     int            `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
}

// EffectiveRange resolves the bounds the proposal would apply to the task,
// falling back to the task's current bound where the proposal is silent.
func (p *ChangeProposal) EffectiveRange(task *Task) DateRange {
	r := task.Range()
	if p.ProposedStart != nil {
		r.Start = *p.ProposedStart
	}
	if p.ProposedEnd != nil {
		r.End = *p.ProposedEnd
	}
	return r
}
