package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDateRange is returned before any mutation when a requested
// range has start after end.
var ErrInvalidDateRange = errors.New("date range start must not be after end")

// ErrGraphCycle is returned when a cascade walk does not settle, which
// only happens if a cycle has slipped into the stored connection graph
// past the creation-time reachability check.
var ErrGraphCycle = errors.New("connection graph contains a cycle")

// OutOfMilestoneBoundsError reports a task whose cascaded range no longer
// fits inside its milestone. The caller must roll back the whole
// transaction; the computed closure is never partially persisted.
type OutOfMilestoneBoundsError struct {
	TaskID int
	Start  time.Time
	End    time.Time
}

func (e *OutOfMilestoneBoundsError) Error() string {
	return fmt.Sprintf("task %d (%s .. %s) falls outside the milestone bounds",
		e.TaskID, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

// InvalidConnectionError reports a connection whose type rule does not
// hold for the current dates of its endpoint tasks.
type InvalidConnectionError struct {
	Message string
}

func (e *InvalidConnectionError) Error() string {
	return e.Message
}

// StatusTransitionBlockedError reports a status change blocked by an
// unmet predecessor constraint. Advisory: no state is mutated.
type StatusTransitionBlockedError struct {
	Message string
}

func (e *StatusTransitionBlockedError) Error() string {
	return e.Message
}
