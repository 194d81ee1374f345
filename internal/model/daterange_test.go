package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateRange(t *testing.T) {
	r := NewDateRange(day(2022, 1, 10), day(2022, 1, 20))

	t.Run("valid", func(t *testing.T) {
		assert.True(t, r.Valid())
		assert.False(t, NewDateRange(day(2022, 1, 20), day(2022, 1, 10)).Valid())
		assert.True(t, NewDateRange(day(2022, 1, 10), day(2022, 1, 10)).Valid())
	})

	t.Run("contains", func(t *testing.T) {
		assert.True(t, r.Contains(NewDateRange(day(2022, 1, 12), day(2022, 1, 18))))
		assert.True(t, r.Contains(r), "bounds are inclusive")
		assert.False(t, r.Contains(NewDateRange(day(2022, 1, 9), day(2022, 1, 18))))
		assert.False(t, r.Contains(NewDateRange(day(2022, 1, 12), day(2022, 1, 21))))
	})

	t.Run("contains time", func(t *testing.T) {
		assert.True(t, r.ContainsTime(day(2022, 1, 10)))
		assert.True(t, r.ContainsTime(day(2022, 1, 20)))
		assert.False(t, r.ContainsTime(day(2022, 1, 21)))
	})

	t.Run("overlaps", func(t *testing.T) {
		assert.True(t, r.Overlaps(NewDateRange(day(2022, 1, 20), day(2022, 1, 25))), "shared day counts")
		assert.True(t, r.Overlaps(NewDateRange(day(2022, 1, 1), day(2022, 1, 10))))
		assert.False(t, r.Overlaps(NewDateRange(day(2022, 1, 21), day(2022, 1, 25))))
	})

	t.Run("duration", func(t *testing.T) {
		assert.Equal(t, 10*24*time.Hour, r.Duration())
	})
}
