package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planboard/internal/model"
)

func TestValidateConnection(t *testing.T) {
	t.Run("self reference always rejected", func(t *testing.T) {
		a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
		err := ValidateConnection(model.FinishToStart, a, a)
		var invalid *InvalidConnectionError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("start to start", func(t *testing.T) {
		early := task(1, "early", day(2022, 1, 1), day(2022, 1, 10))
		late := task(2, "late", day(2022, 1, 5), day(2022, 1, 15))

		assert.NoError(t, ValidateConnection(model.StartToStart, early, late))
		assert.Error(t, ValidateConnection(model.StartToStart, late, early),
			"source starting after target is invalid")
	})

	t.Run("finish to finish", func(t *testing.T) {
		early := task(1, "early", day(2022, 1, 1), day(2022, 1, 10))
		late := task(2, "late", day(2022, 1, 5), day(2022, 1, 15))

		assert.NoError(t, ValidateConnection(model.FinishToFinish, early, late))
		assert.Error(t, ValidateConnection(model.FinishToFinish, late, early))
	})

	t.Run("finish to start", func(t *testing.T) {
		first := task(1, "first", day(2022, 1, 1), day(2022, 1, 10))
		second := task(2, "second", day(2022, 1, 10), day(2022, 1, 20))

		assert.NoError(t, ValidateConnection(model.FinishToStart, first, second),
			"finishing on the successor's start day is allowed")
		assert.Error(t, ValidateConnection(model.FinishToStart, second, first))
	})

	t.Run("unknown type", func(t *testing.T) {
		a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
		b := task(2, "b", day(2022, 1, 10), day(2022, 1, 20))
		assert.Error(t, ValidateConnection(model.ConnectionType("start_to_finish"), a, b))
	})
}
