package directory

import (
	"context"
	"errors"
	"sync"
)

type undoStep struct {
	op string
	fn func(ctx context.Context) error
}

// undoLog records how to reverse each successful step of a multi record
// write. It is safe for concurrent use by a fan-out.
type undoLog struct {
	mu    sync.Mutex
	steps []undoStep
}

func (u *undoLog) add(op string, fn func(ctx context.Context) error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.steps = append(u.steps, undoStep{op: op, fn: fn})
}

// run reverses the recorded steps newest first. It survives cancellation of
// ctx and only logs failures.
func (u *undoLog) run(ctx context.Context, r Reporter) {
	u.mu.Lock()
	steps := u.steps
	u.steps = nil
	u.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].fn(ctx); err != nil && !errors.Is(err, ErrNotFound) {
			r.warn(ctx, "undo "+steps[i].op, err)
		}
	}
	r.logger(ctx).Info().Int("steps", len(steps)).Msg("Compensated partially applied write")
}
