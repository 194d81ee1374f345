package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/internal/model"
)

func reschedulerFor(store GraphStore) *Rescheduler {
	return NewRescheduler(store, zap.NewNop())
}

func findByID(tasks []*model.Task, id int) *model.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func TestRescheduleNoOp(t *testing.T) {
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
	store := newMemStore(a)
	m := milestone(day(2022, 1, 1), day(2022, 1, 31))

	got, err := reschedulerFor(store).Reschedule(context.Background(), a, a.Range(), m)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Same(t, a, got[0], "no-op returns the task itself, untouched")
	assert.Equal(t, day(2022, 1, 1), a.Start)
	assert.Equal(t, day(2022, 1, 10), a.End)
}

func TestRescheduleInvalidRange(t *testing.T) {
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
	store := newMemStore(a)
	m := milestone(day(2022, 1, 1), day(2022, 1, 31))

	_, err := reschedulerFor(store).Reschedule(context.Background(), a,
		model.NewDateRange(day(2022, 1, 10), day(2022, 1, 1)), m)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

// The worked example: A 01-01..01-10, B 01-10..01-20, A→B finish-to-start.
// Growing A's end to 01-15 pushes B to 01-15..01-25 with its 10-day
// duration intact.
func TestRescheduleFinishToStartPush(t *testing.T) {
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
	b := task(2, "b", day(2022, 1, 10), day(2022, 1, 20))
	store := newMemStore(a, b)
	store.connect(1, a.ID, b.ID, model.FinishToStart)
	m := milestone(day(2022, 1, 1), day(2022, 1, 31))

	got, err := reschedulerFor(store).Reschedule(context.Background(), a,
		model.NewDateRange(day(2022, 1, 1), day(2022, 1, 15)), m)
	require.NoError(t, err)
	require.Len(t, got, 2)

	movedA := findByID(got, 1)
	movedB := findByID(got, 2)
	require.NotNil(t, movedA)
	require.NotNil(t, movedB)

	assert.Equal(t, day(2022, 1, 15), movedA.End)
	assert.Equal(t, day(2022, 1, 15), movedB.Start)
	assert.Equal(t, day(2022, 1, 25), movedB.End)
	assert.Equal(t, 10*24*time.Hour, movedB.Range().Duration(), "duration preserved")

	// the store snapshot is untouched; persistence is the caller's job
	assert.Equal(t, day(2022, 1, 10), b.Start)
}

func TestRescheduleChainCascades(t *testing.T) {
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 5))
	b := task(2, "b", day(2022, 1, 5), day(2022, 1, 10))
	c := task(3, "c", day(2022, 1, 10), day(2022, 1, 12))
	store := newMemStore(a, b, c)
	store.connect(1, a.ID, b.ID, model.FinishToStart)
	store.connect(2, b.ID, c.ID, model.FinishToStart)
	m := milestone(day(2022, 1, 1), day(2022, 2, 28))

	got, err := reschedulerFor(store).Reschedule(context.Background(), a,
		model.NewDateRange(day(2022, 1, 1), day(2022, 1, 8)), m)
	require.NoError(t, err)
	require.Len(t, got, 3, "a move through B must reach C transitively")

	movedB := findByID(got, 2)
	movedC := findByID(got, 3)
	assert.Equal(t, day(2022, 1, 8), movedB.Start)
	assert.Equal(t, day(2022, 1, 13), movedB.End)
	assert.Equal(t, day(2022, 1, 13), movedC.Start)
	assert.Equal(t, day(2022, 1, 15), movedC.End)
}

func TestRescheduleForwardRules(t *testing.T) {
	m := milestone(day(2022, 1, 1), day(2022, 12, 31))

	t.Run("start to start", func(t *testing.T) {
		a := task(1, "a", day(2022, 1, 5), day(2022, 1, 10))
		b := task(2, "b", day(2022, 1, 5), day(2022, 1, 8))
		store := newMemStore(a, b)
		store.connect(1, a.ID, b.ID, model.StartToStart)

		// grow A later on both ends
		got, err := reschedulerFor(store).Reschedule(context.Background(), a,
			model.NewDateRange(day(2022, 1, 9), day(2022, 1, 14)), m)
		require.NoError(t, err)

		movedB := findByID(got, 2)
		require.NotNil(t, movedB)
		assert.Equal(t, day(2022, 1, 9), movedB.Start)
		assert.Equal(t, day(2022, 1, 12), movedB.End)
	})

	t.Run("finish to finish", func(t *testing.T) {
		a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
		b := task(2, "b", day(2022, 1, 4), day(2022, 1, 12))
		store := newMemStore(a, b)
		store.connect(1, a.ID, b.ID, model.FinishToFinish)

		got, err := reschedulerFor(store).Reschedule(context.Background(), a,
			model.NewDateRange(day(2022, 1, 1), day(2022, 1, 20)), m)
		require.NoError(t, err)

		movedB := findByID(got, 2)
		require.NotNil(t, movedB)
		assert.Equal(t, day(2022, 1, 20), movedB.End)
		assert.Equal(t, day(2022, 1, 12), movedB.Start, "8-day duration kept")
	})

	t.Run("satisfied constraint does not move the target", func(t *testing.T) {
		a := task(1, "a", day(2022, 1, 1), day(2022, 1, 5))
		b := task(2, "b", day(2022, 1, 20), day(2022, 1, 25))
		store := newMemStore(a, b)
		store.connect(1, a.ID, b.ID, model.FinishToStart)

		got, err := reschedulerFor(store).Reschedule(context.Background(), a,
			model.NewDateRange(day(2022, 1, 1), day(2022, 1, 10)), m)
		require.NoError(t, err)
		assert.Len(t, got, 1, "B still starts after A ends, nothing to do")
	})
}

func TestRescheduleBackward(t *testing.T) {
	m := milestone(day(2021, 12, 1), day(2022, 12, 31))

	t.Run("finish to start pulls predecessor earlier", func(t *testing.T) {
		a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
		b := task(2, "b", day(2022, 1, 10), day(2022, 1, 20))
		store := newMemStore(a, b)
		store.connect(1, a.ID, b.ID, model.FinishToStart)

		got, err := reschedulerFor(store).Reschedule(context.Background(), b,
			model.NewDateRange(day(2022, 1, 5), day(2022, 1, 20)), m)
		require.NoError(t, err)

		movedA := findByID(got, 1)
		require.NotNil(t, movedA)
		assert.Equal(t, day(2022, 1, 5), movedA.End)
		assert.Equal(t, day(2021, 12, 27), movedA.Start, "9-day duration kept")
	})

	t.Run("chain pulls transitively", func(t *testing.T) {
		a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
		b := task(2, "b", day(2022, 1, 10), day(2022, 1, 15))
		c := task(3, "c", day(2022, 1, 15), day(2022, 1, 20))
		store := newMemStore(a, b, c)
		store.connect(1, a.ID, b.ID, model.FinishToStart)
		store.connect(2, b.ID, c.ID, model.FinishToStart)

		got, err := reschedulerFor(store).Reschedule(context.Background(), c,
			model.NewDateRange(day(2022, 1, 8), day(2022, 1, 20)), m)
		require.NoError(t, err)
		require.Len(t, got, 3)

		movedB := findByID(got, 2)
		movedA := findByID(got, 1)
		assert.Equal(t, day(2022, 1, 8), movedB.End)
		assert.Equal(t, day(2022, 1, 3), movedB.Start)
		assert.Equal(t, day(2022, 1, 3), movedA.End)
		assert.Equal(t, day(2021, 12, 25), movedA.Start)
	})
}

func TestRescheduleBothDirections(t *testing.T) {
	// growing B on both ends pulls its predecessor earlier and pushes its
	// successor later in the same operation
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
	b := task(2, "b", day(2022, 1, 10), day(2022, 1, 15))
	c := task(3, "c", day(2022, 1, 15), day(2022, 1, 20))
	store := newMemStore(a, b, c)
	store.connect(1, a.ID, b.ID, model.FinishToStart)
	store.connect(2, b.ID, c.ID, model.FinishToStart)
	m := milestone(day(2021, 12, 1), day(2022, 2, 28))

	got, err := reschedulerFor(store).Reschedule(context.Background(), b,
		model.NewDateRange(day(2022, 1, 8), day(2022, 1, 18)), m)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, day(2022, 1, 8), findByID(got, 1).End)
	assert.Equal(t, day(2022, 1, 18), findByID(got, 3).Start)
}

func TestRescheduleShrinkPropagatesNothing(t *testing.T) {
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
	b := task(2, "b", day(2022, 1, 10), day(2022, 1, 20))
	store := newMemStore(a, b)
	store.connect(1, a.ID, b.ID, model.FinishToStart)
	m := milestone(day(2022, 1, 1), day(2022, 1, 31))

	got, err := reschedulerFor(store).Reschedule(context.Background(), a,
		model.NewDateRange(day(2022, 1, 2), day(2022, 1, 8)), m)
	require.NoError(t, err)
	require.Len(t, got, 1, "shrinking inward moves no neighbor")
	assert.Equal(t, day(2022, 1, 2), got[0].Start)
	assert.Equal(t, day(2022, 1, 8), got[0].End)
}

func TestRescheduleOutOfBounds(t *testing.T) {
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
	b := task(2, "b", day(2022, 1, 10), day(2022, 1, 20))
	store := newMemStore(a, b)
	store.connect(1, a.ID, b.ID, model.FinishToStart)
	m := milestone(day(2022, 1, 1), day(2022, 1, 20))

	_, err := reschedulerFor(store).Reschedule(context.Background(), a,
		model.NewDateRange(day(2022, 1, 1), day(2022, 1, 15)), m)

	var oob *OutOfMilestoneBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 2, oob.TaskID, "B lands at 01-15..01-25, past the envelope")
	assert.Equal(t, day(2022, 1, 25), oob.End)

	// nothing leaked into the store snapshot
	assert.Equal(t, day(2022, 1, 10), b.Start)
	assert.Equal(t, day(2022, 1, 20), b.End)
}

func TestRescheduleConvergingPaths(t *testing.T) {
	// A feeds C both directly and through B; C must end up in the closure
	// exactly once
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 5))
	b := task(2, "b", day(2022, 1, 5), day(2022, 1, 10))
	c := task(3, "c", day(2022, 1, 10), day(2022, 1, 15))
	store := newMemStore(a, b, c)
	store.connect(1, a.ID, b.ID, model.FinishToStart)
	store.connect(2, a.ID, c.ID, model.FinishToStart)
	store.connect(3, b.ID, c.ID, model.FinishToStart)
	m := milestone(day(2022, 1, 1), day(2022, 3, 31))

	got, err := reschedulerFor(store).Reschedule(context.Background(), a,
		model.NewDateRange(day(2022, 1, 1), day(2022, 1, 12)), m)
	require.NoError(t, err)
	require.Len(t, got, 3)

	movedC := findByID(got, 3)
	assert.Equal(t, 5*24*time.Hour, movedC.Range().Duration())
	assert.False(t, movedC.Start.Before(findByID(got, 2).End), "C still respects B's finish")
}

func TestRescheduleSecondShiftReachesDownstream(t *testing.T) {
	// A feeds C directly and through B; D hangs off C. The direct A→C
	// edge shifts C first, then the path through B shifts C again, and D
	// must follow C's later bounds, not the first ones.
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 10))
	b := task(2, "b", day(2022, 1, 10), day(2022, 1, 12))
	c := task(3, "c", day(2022, 1, 12), day(2022, 1, 17))
	d := task(4, "d", day(2022, 1, 17), day(2022, 1, 22))
	store := newMemStore(a, b, c, d)
	store.connect(1, a.ID, c.ID, model.FinishToStart)
	store.connect(2, a.ID, b.ID, model.FinishToStart)
	store.connect(3, b.ID, c.ID, model.FinishToStart)
	store.connect(4, c.ID, d.ID, model.FinishToStart)
	m := milestone(day(2022, 1, 1), day(2022, 3, 31))

	got, err := reschedulerFor(store).Reschedule(context.Background(), a,
		model.NewDateRange(day(2022, 1, 1), day(2022, 1, 14)), m)
	require.NoError(t, err)
	require.Len(t, got, 4)

	movedB := findByID(got, 2)
	movedC := findByID(got, 3)
	movedD := findByID(got, 4)
	assert.Equal(t, day(2022, 1, 14), movedB.Start)
	assert.Equal(t, day(2022, 1, 16), movedB.End)
	assert.Equal(t, day(2022, 1, 16), movedC.Start, "C follows B's finish, not A's")
	assert.Equal(t, day(2022, 1, 21), movedC.End)
	assert.Equal(t, day(2022, 1, 21), movedD.Start, "D follows C's second shift")
	assert.Equal(t, day(2022, 1, 26), movedD.End)
	assert.False(t, movedD.Start.Before(movedC.End), "finish-to-start C→D holds across the closure")
}

func TestRescheduleTerminatesOnCycle(t *testing.T) {
	// cycles are rejected at connection creation, but a corrupted graph
	// must fail fast instead of hanging the walk
	a := task(1, "a", day(2022, 1, 1), day(2022, 1, 5))
	b := task(2, "b", day(2022, 1, 5), day(2022, 1, 10))
	store := newMemStore(a, b)
	store.connect(1, a.ID, b.ID, model.FinishToStart)
	store.connect(2, b.ID, a.ID, model.FinishToStart)
	m := milestone(day(2022, 1, 1), day(2022, 12, 31))

	errCh := make(chan error, 1)
	go func() {
		_, err := reschedulerFor(store).Reschedule(context.Background(), a,
			model.NewDateRange(day(2022, 1, 1), day(2022, 1, 8)), m)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrGraphCycle)
	case <-time.After(5 * time.Second):
		t.Fatal("walk did not terminate on a cyclic graph")
	}
}
