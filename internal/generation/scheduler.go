package generation

import "context"

// Scheduler bounds concurrent GPU work. Every render or refinement pass holds
// one slot for its full duration.
type Scheduler struct {
	slots chan struct{}
}

// NewScheduler creates a scheduler with the given slot count (minimum 1).
func NewScheduler(slots int) *Scheduler {
	if slots < 1 {
		slots = 1
	}
	return &Scheduler{slots: make(chan struct{}, slots)}
}

// Acquire blocks until a GPU slot is free or the context is done. On success
// the caller must call the returned release function exactly once.
func (s *Scheduler) Acquire(ctx context.Context) (func(), error) {
	select {
	case s.slots <- struct{}{}:
		return func() { <-s.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
