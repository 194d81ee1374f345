package schedule

import (
	"planboard/internal/model"
)

// ExtendMilestone grows the milestone envelope so it contains the given
// task range. Runs after every task create/update, including cascade
// results, and before the rescheduler's closure bound check so legitimate
// cascades are not rejected against a stale envelope. Returns true when
// the envelope changed.
func ExtendMilestone(m *model.Milestone, taskRange model.DateRange) bool {
	changed := false
	if taskRange.Start.Before(m.Start) {
		m.Start = taskRange.Start
		changed = true
	}
	if taskRange.End.After(m.End) {
		m.End = taskRange.End
		changed = true
	}
	return changed
}

// MilestoneReadiness is the arithmetic mean of the tasks' readiness
// estimates, counting an unreported estimate as 0. An empty milestone
// reads as 0.
func MilestoneReadiness(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	sum := 0
	for i := range tasks {
		sum += tasks[i].ReadinessOrZero()
	}
	return sum / len(tasks)
}
