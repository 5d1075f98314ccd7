package analysis

import (
	"context"
	"errors"
	"time"
)

// errBudgetExceeded is the cancellation cause when a Deadline's budget elapses
var errBudgetExceeded = errors.New("analysis time budget exceeded")

// Deadline is a cancellation signal that fires once: when its budget elapses
// or when Cancel is called, whichever comes first.
type Deadline struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDeadline starts a deadline bounded by budget and by parent
func NewDeadline(parent context.Context, budget time.Duration) *Deadline {
	ctx, cancel := context.WithTimeoutCause(parent, budget, errBudgetExceeded)
	return &Deadline{ctx: ctx, cancel: cancel}
}

// Context returns a context that is done when the deadline fires
func (d *Deadline) Context() context.Context {
	return d.ctx
}

// Done is closed when the deadline fires
func (d *Deadline) Done() <-chan struct{} {
	return d.ctx.Done()
}

// Cancel fires the deadline early and releases its timer. Safe to call more
// than once, and after the budget has elapsed.
func (d *Deadline) Cancel() {
	d.cancel()
}

// Expired reports whether the budget elapsed (as opposed to Cancel or the
// parent context ending it).
func (d *Deadline) Expired() bool {
	return errors.Is(context.Cause(d.ctx), errBudgetExceeded)
}
