package escrow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// DeadlinePassed is the single deadline comparison used by the guard
// engine. Pure in now, so guard decisions stay testable without a clock
func DeadlinePassed(target time.Time, now time.Time) bool {
	if target.IsZero() {
		return false
	}
	return !now.Before(target)
}

// TimeLeft returns the remaining duration to target, zero when passed
func TimeLeft(target time.Time, now time.Time) time.Duration {
	if DeadlinePassed(target, now) {
		return 0
	}
	return target.Sub(now)
}

// FormatRemaining renders a duration the way the UI displays countdowns
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// Countdown ticks towards an absolute deadline and fires onExpire exactly
// once when it is crossed. One countdown runs per non-zero deadline field
// of the current snapshot; a snapshot refresh that moves the target
// replaces the countdown instead of retargeting it
type Countdown struct {
	// config
	target       time.Time
	tickInterval time.Duration

	// state
	fired atomic.Bool

	// deps
	onExpire func()
}

func NewCountdown(target time.Time, onExpire func()) *Countdown {
	return &Countdown{
		target:       target,
		tickInterval: time.Second,
		onExpire:     onExpire,
	}
}

func (c *Countdown) Target() time.Time {
	return c.target
}

// Remaining returns the human readable time left as of now
func (c *Countdown) Remaining(now time.Time) string {
	return FormatRemaining(TimeLeft(c.target, now))
}

// Expired reports whether onExpire has already fired
func (c *Countdown) Expired() bool {
	return c.fired.Load()
}

// Run ticks until the target is crossed or the context is cancelled.
// Returns nil after firing onExpire
func (c *Countdown) Run(ctx context.Context) error {
	if c.target.IsZero() {
		return nil
	}
	if c.tryExpire(time.Now()) {
		return nil
	}

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if c.tryExpire(now) {
				return nil
			}
		}
	}
}

func (c *Countdown) tryExpire(now time.Time) bool {
	if !DeadlinePassed(c.target, now) {
		return false
	}
	if c.fired.CompareAndSwap(false, true) {
		if c.onExpire != nil {
			c.onExpire()
		}
	}
	return true
}
