package model

import "time"

// DateRange is an inclusive [start, end] calendar-day interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: start, End: end}
}

// Valid reports whether the range is well formed (start <= end).
func (r DateRange) Valid() bool {
	return !r.Start.After(r.End)
}

// Duration is the length of the range. Preserved when a task is shifted
// along the connection graph.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether other lies fully inside r, bounds inclusive.
func (r DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// ContainsTime reports whether t lies inside r, bounds inclusive.
func (r DateRange) ContainsTime(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Overlaps reports whether the two ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}
