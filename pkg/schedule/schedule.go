package schedule

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Loop runs a pass, rests for Interval, and repeats. The rest starts after the
// pass completes, so the time between the start of two passes is the
// interval plus the duration of the pass.
type Loop struct {
	Interval time.Duration
	Clock    clockwork.Clock
}

// Run calls `pass` until `ctx` is cancelled. Cancellation is only observed
// between passes; a pass that has started always runs to completion. Run
// always returns the context's error.
func (l Loop) Run(ctx context.Context, pass func()) error {
	clock := l.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pass()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(l.Interval):
		}
	}
}
