package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestDeadlinePassed(t *testing.T) {
	now := time.Now()

	require.False(t, DeadlinePassed(time.Time{}, now))
	require.False(t, DeadlinePassed(now.Add(time.Second), now))
	require.True(t, DeadlinePassed(now, now))
	require.True(t, DeadlinePassed(now.Add(-time.Second), now))
}

func TestFormatRemaining(t *testing.T) {
	require.Equal(t, "expired", FormatRemaining(0))
	require.Equal(t, "expired", FormatRemaining(-time.Minute))
	require.Equal(t, "4m 5s", FormatRemaining(4*time.Minute+5*time.Second))
	require.Equal(t, "3h 4m 5s", FormatRemaining(3*time.Hour+4*time.Minute+5*time.Second))
	require.Equal(t, "2d 3h 4m 5s", FormatRemaining(51*time.Hour+4*time.Minute+5*time.Second))
}

func TestCountdownFiresOnce(t *testing.T) {
	fired := atomic.NewInt32(0)

	c := NewCountdown(time.Now().Add(30*time.Millisecond), func() {
		fired.Inc()
	})
	c.tickInterval = 10 * time.Millisecond

	err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), fired.Load())
	require.True(t, c.Expired())

	// a second run is a no-op past expiry
	err = c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), fired.Load())
}

func TestCountdownPastTargetFiresImmediately(t *testing.T) {
	fired := atomic.NewBool(false)

	c := NewCountdown(time.Now().Add(-time.Hour), func() {
		fired.Store(true)
	})

	err := c.Run(context.Background())
	require.NoError(t, err)
	require.True(t, fired.Load())
}

func TestCountdownZeroTarget(t *testing.T) {
	c := NewCountdown(time.Time{}, func() {
		t.Fatal("must not fire without a target")
	})

	err := c.Run(context.Background())
	require.NoError(t, err)
	require.False(t, c.Expired())
}

func TestCountdownCancelled(t *testing.T) {
	c := NewCountdown(time.Now().Add(time.Hour), func() {
		t.Fatal("must not fire before the target")
	})
	c.tickInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, c.Expired())
}

func TestCountdownRemaining(t *testing.T) {
	now := time.Now()
	c := NewCountdown(now.Add(2*time.Minute+3*time.Second), nil)

	require.Equal(t, "2m 3s", c.Remaining(now))
	require.Equal(t, "expired", c.Remaining(now.Add(3*time.Minute)))
}
