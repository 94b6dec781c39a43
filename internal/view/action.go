package view

import (
	"context"
	"sync/atomic"
)

// Action guards one mutating control. While a write is in flight a second
// submission is rejected with ErrBusy and sends nothing.
type Action struct {
	inFlight atomic.Bool
}

// Run executes fn unless another run is in progress.
func (a *Action) Run(ctx context.Context, fn func(context.Context) error) error {
	if !a.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer a.inFlight.Store(false)
	return fn(ctx)
}

// InFlight reports whether the triggering control should render disabled.
func (a *Action) InFlight() bool { return a.inFlight.Load() }
