package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_ConditionMetAfterSeveralChecks(t *testing.T) {
	t.Parallel()

	checks := 0
	p := NewPolicy(WithInitialDelay(time.Millisecond), WithMaxDelay(2*time.Millisecond))
	err := p.Poll(context.Background(), time.Second, func(context.Context) (bool, error) {
		checks++
		return checks == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, checks)
}

func TestPoll_ConditionErrorStopsPolling(t *testing.T) {
	t.Parallel()

	boom := errors.New("image pull failed")
	checks := 0
	p := NewPolicy(WithInitialDelay(time.Millisecond))
	err := p.Poll(context.Background(), time.Second, func(context.Context) (bool, error) {
		checks++
		return false, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, checks)
}

func TestPoll_TimeoutWithFakeClock(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	p := NewPolicy(WithClock(fc), WithInitialDelay(time.Second), WithMaxDelay(4*time.Second))

	done := make(chan error, 1)
	go func() {
		done <- p.Poll(context.Background(), 10*time.Second, func(context.Context) (bool, error) {
			return false, nil
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Waits of 1s, 2s and 2s (clipped to the remaining window).
	for range 3 {
		require.NoError(t, fc.BlockUntilContext(ctx, 1))
		fc.Advance(4 * time.Second)
	}

	err := <-done
	require.ErrorIs(t, err, ErrTimeoutExceeded)
}

func TestPoll_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPolicy(WithInitialDelay(time.Hour))
	err := p.Poll(ctx, time.Hour, func(context.Context) (bool, error) {
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
}
