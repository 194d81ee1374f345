package schedule

import (
	"fmt"

	"planboard/internal/model"
)

// ValidateConnection checks a proposed connection against the current
// dates of its endpoint tasks. Called at connection create and update
// time, with the tasks' latest bounds (after any pending reassignment).
func ValidateConnection(typ model.ConnectionType, source, target *model.Task) error {
	if source.ID == target.ID {
		return &InvalidConnectionError{Message: "a task cannot depend on itself"}
	}

	switch typ {
	case model.StartToStart:
		if source.Start.After(target.Start) {
			return &InvalidConnectionError{Message: fmt.Sprintf(
				"start-to-start: task %d starts after task %d", source.ID, target.ID)}
		}
	case model.FinishToFinish:
		if source.End.After(target.End) {
			return &InvalidConnectionError{Message: fmt.Sprintf(
				"finish-to-finish: task %d finishes after task %d", source.ID, target.ID)}
		}
	case model.FinishToStart:
		if source.End.After(target.Start) {
			return &InvalidConnectionError{Message: fmt.Sprintf(
				"finish-to-start: task %d finishes after task %d starts", source.ID, target.ID)}
		}
	default:
		return &InvalidConnectionError{Message: fmt.Sprintf("unknown connection type %q", typ)}
	}

	return nil
}

// shiftTargetLater applies the forward propagation rule for one edge.
// The target keeps its duration and moves later until the type constraint
// holds again. Returns true when the target's bounds changed.
func shiftTargetLater(typ model.ConnectionType, source, target *model.Task) bool {
	length := target.End.Sub(target.Start)

	switch typ {
	case model.FinishToStart:
		if source.End.After(target.Start) {
			target.Start = source.End
			target.End = target.Start.Add(length)
			return true
		}
	case model.StartToStart:
		if target.Start.Before(source.Start) {
			target.Start = source.Start
			target.End = target.Start.Add(length)
			return true
		}
	case model.FinishToFinish:
		if target.End.Before(source.End) {
			target.End = source.End
			target.Start = target.End.Add(-length)
			return true
		}
	}
	return false
}

// shiftSourceEarlier is the mirror rule for the backward pass: the source
// keeps its duration and moves earlier until the constraint holds.
func shiftSourceEarlier(typ model.ConnectionType, source, target *model.Task) bool {
	length := source.End.Sub(source.Start)

	switch typ {
	case model.FinishToStart:
		if source.End.After(target.Start) {
			source.End = target.Start
			source.Start = source.End.Add(-length)
			return true
		}
	case model.StartToStart:
		if source.Start.After(target.Start) {
			source.Start = target.Start
			source.End = source.Start.Add(length)
			return true
		}
	case model.FinishToFinish:
		if source.End.After(target.End) {
			source.End = target.End
			source.Start = source.End.Add(-length)
			return true
		}
	}
	return false
}
