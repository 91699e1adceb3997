package lib

import (
	"context"
	"errors"
	"time"
)

var ErrTimeout = errors.New("lock timeout")

// Mutex is a channel-based mutex that supports cancellable locking
type Mutex struct {
	ch chan struct{}
}

func NewMutex() Mutex {
	return Mutex{
		ch: make(chan struct{}, 1),
	}
}

func (m Mutex) Lock() {
	m.ch <- struct{}{}
}

func (m Mutex) LockCtx(ctx context.Context) error {
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m Mutex) LockTimeout(timeout time.Duration) error {
	if timeout == 0 {
		select {
		case m.ch <- struct{}{}:
			return nil
		default:
			return ErrTimeout
		}
	}
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Unlock releases the mutex, unlocking an unlocked mutex is a no-op
func (m Mutex) Unlock() {
	select {
	case <-m.ch:
	default:
	}
}
