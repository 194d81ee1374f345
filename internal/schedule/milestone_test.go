package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"planboard/internal/model"
)

func TestExtendMilestone(t *testing.T) {
	t.Run("grows both bounds", func(t *testing.T) {
		m := milestone(day(2022, 1, 10), day(2022, 1, 20))
		changed := ExtendMilestone(m, model.NewDateRange(day(2022, 1, 5), day(2022, 1, 25)))
		assert.True(t, changed)
		assert.Equal(t, day(2022, 1, 5), m.Start)
		assert.Equal(t, day(2022, 1, 25), m.End)
	})

	t.Run("never contracts", func(t *testing.T) {
		m := milestone(day(2022, 1, 1), day(2022, 1, 31))
		changed := ExtendMilestone(m, model.NewDateRange(day(2022, 1, 10), day(2022, 1, 20)))
		assert.False(t, changed)
		assert.Equal(t, day(2022, 1, 1), m.Start)
		assert.Equal(t, day(2022, 1, 31), m.End)
	})
}

func TestMilestoneReadiness(t *testing.T) {
	pct := func(v int) *int { return &v }

	t.Run("empty milestone reads zero", func(t *testing.T) {
		assert.Equal(t, 0, MilestoneReadiness(nil))
	})

	t.Run("mean of reported values", func(t *testing.T) {
		tasks := []model.Task{
			{ID: 1, Readiness: pct(100)},
			{ID: 2, Readiness: pct(50)},
			{ID: 3, Readiness: pct(30)},
		}
		assert.Equal(t, 60, MilestoneReadiness(tasks))
	})

	t.Run("unreported counts as zero", func(t *testing.T) {
		tasks := []model.Task{
			{ID: 1, Readiness: pct(90)},
			{ID: 2},
		}
		assert.Equal(t, 45, MilestoneReadiness(tasks))
	})
}
