package schedule

import (
	"context"

	"go.uber.org/zap"

	"planboard/internal/model"
)

// GraphStore is the narrow adjacency contract the scheduling core needs
// from persistence. The core never writes through it; the caller persists
// the returned closure inside its own transaction boundary.
type GraphStore interface {
	FindConnections(ctx context.Context, taskID int, role model.ConnectionRole) ([]model.Connection, error)
	FindTask(ctx context.Context, id int) (*model.Task, error)
}

// updatableSet is the authoritative in-memory view of tasks touched by a
// cascade, keyed by task id. Repeated visits must see prior updates, so
// lookups go through the set before falling back to the store.
type updatableSet struct {
	byID  map[int]*model.Task
	order []int
}

func newUpdatableSet() *updatableSet {
	return &updatableSet{byID: make(map[int]*model.Task)}
}

func (s *updatableSet) get(id int) (*model.Task, bool) {
	t, ok := s.byID[id]
	return t, ok
}

func (s *updatableSet) put(t *model.Task) {
	if _, ok := s.byID[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.byID[t.ID] = t
}

func (s *updatableSet) tasks() []*model.Task {
	out := make([]*model.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Rescheduler computes the full, consistent set of date-range updates a
// single task move forces across the connection graph. It is pure: all
// mutations happen on copies, and nothing is persisted here.
type Rescheduler struct {
	store  GraphStore
	logger *zap.Logger
}

func NewRescheduler(store GraphStore, logger *zap.Logger) *Rescheduler {
	return &Rescheduler{store: store, logger: logger}
}

// Reschedule moves task to newRange and walks the connection graph in
// both directions, shifting dependent tasks while preserving their
// durations. Every task in the resulting closure must fit inside the
// milestone envelope or the whole operation fails with
// OutOfMilestoneBoundsError.
//
// The connection graph is kept acyclic at creation time; a visit cap
// bounds the walk even if a cycle slips into the stored graph.
func (r *Rescheduler) Reschedule(ctx context.Context, task *model.Task, newRange model.DateRange, milestone *model.Milestone) ([]*model.Task, error) {
	if !newRange.Valid() {
		return nil, ErrInvalidDateRange
	}

	if newRange.Start.Equal(task.Start) && newRange.End.Equal(task.End) {
		return []*model.Task{task}, nil
	}

	movesForward := task.End.Before(newRange.End)
	movesBackward := task.Start.After(newRange.Start)

	seed := *task
	seed.SetRange(newRange)

	updated := newUpdatableSet()
	updated.put(&seed)

	if movesForward {
		if err := r.walk(ctx, updated, seed.ID, model.RoleSource); err != nil {
			return nil, err
		}
	}
	if movesBackward {
		if err := r.walk(ctx, updated, seed.ID, model.RoleTarget); err != nil {
			return nil, err
		}
	}

	bounds := milestone.Range()
	for _, t := range updated.tasks() {
		if !bounds.Contains(t.Range()) {
			r.logger.Warn("Reschedule closure exceeds milestone bounds",
				zap.Int("task_id", t.ID),
				zap.Int("milestone_id", milestone.ID),
				zap.Time("task_start", t.Start),
				zap.Time("task_end", t.End),
			)
			return nil, &OutOfMilestoneBoundsError{TaskID: t.ID, Start: t.Start, End: t.End}
		}
	}

	r.logger.Debug("Reschedule closure computed",
		zap.Int("task_id", task.ID),
		zap.Int("closure_size", len(updated.byID)),
		zap.Bool("moves_forward", movesForward),
		zap.Bool("moves_backward", movesBackward),
	)
	return updated.tasks(), nil
}

// maxWalkVisits bounds one pass of the cascade walk. On an acyclic graph
// every shift is monotonic and the queue drains long before this; only a
// corrupted cyclic graph keeps shifting forever.
const maxWalkVisits = 10000

// walk runs one breadth-first pass from the seed task. role selects the
// direction: RoleSource follows outgoing edges and shifts targets later,
// RoleTarget follows incoming edges and shifts sources earlier.
//
// A task re-enters the queue every time its dates change, so dependents
// downstream of converging paths always see its latest bounds.
func (r *Rescheduler) walk(ctx context.Context, updated *updatableSet, seedID int, role model.ConnectionRole) error {
	queue := []int{seedID}

	for visits := 0; len(queue) > 0; visits++ {
		if visits >= maxWalkVisits {
			return ErrGraphCycle
		}
		currentID := queue[0]
		queue = queue[1:]

		conns, err := r.store.FindConnections(ctx, currentID, role)
		if err != nil {
			return err
		}

		for _, conn := range conns {
			source, err := r.resolve(ctx, updated, conn.SourceTaskID)
			if err != nil {
				return err
			}
			target, err := r.resolve(ctx, updated, conn.TargetTaskID)
			if err != nil {
				return err
			}

			var moved *model.Task
			if role == model.RoleSource {
				if shiftTargetLater(conn.Type, source, target) {
					moved = target
				}
			} else {
				if shiftSourceEarlier(conn.Type, source, target) {
					moved = source
				}
			}
			if moved == nil {
				continue
			}

			updated.put(moved)
			queue = append(queue, moved.ID)
		}
	}
	return nil
}

// resolve returns the latest in-memory version of a task, preferring the
// updatable set over the raw store so later visits see earlier shifts.
// Store hits are copied before they can be mutated.
func (r *Rescheduler) resolve(ctx context.Context, updated *updatableSet, id int) (*model.Task, error) {
	if t, ok := updated.get(id); ok {
		return t, nil
	}
	stored, err := r.store.FindTask(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *stored
	return &cp, nil
}
