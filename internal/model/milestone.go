package model

import "time"

type Milestone struct {
	ID            int       `json:"id"`
	ProjectID     int       `json:"project_id"`
	Name          string    `json:"name"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	OriginalStart time.Time `json:"original_start"` // baseline, editable only while the project is in planning
	OriginalEnd   time.Time `json:"original_end"`
	Readiness     int       `json:"readiness"` // derived mean of task readiness, never stored
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (m *Milestone) Range() DateRange {
	return DateRange{Start: m.Start, End: m.End}
}

func (m *Milestone) SetRange(r DateRange) {
	m.Start = r.Start
	m.End = r.End
}
