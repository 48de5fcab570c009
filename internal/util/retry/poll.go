package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeoutExceeded is returned by Poll when the deadline passes before the
// condition holds.
var ErrTimeoutExceeded = errors.New("timeout exceeded")

// Condition reports whether the awaited state has been reached. A non-nil
// error stops polling immediately.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond until it returns true, returns an error, the deadline
// passes, or ctx is done. Delays between evaluations follow the policy's
// backoff shape; MaxRetries is ignored, the deadline bounds the wait.
func (p Policy) Poll(ctx context.Context, deadline time.Duration, cond Condition) error {
	clock := p.clock()
	start := clock.Now()
	delay := p.InitialDelay

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		remaining := deadline - clock.Since(start)
		if remaining <= 0 {
			return fmt.Errorf("%w after %v", ErrTimeoutExceeded, deadline)
		}

		wait := min(delay, remaining)
		select {
		case <-ctx.Done():
			return fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-clock.After(wait):
			delay = p.next(delay)
		}
	}
}
