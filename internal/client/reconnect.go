package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"landgrab.io/internal/game/tuning"
)

// ErrMaxRetries is returned once the reconnect budget is exhausted.
// The controller is in StateFailed afterwards and will not dial again.
var ErrMaxRetries = errors.New("client: max reconnect attempts reached")

// State is the connection lifecycle of a session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Backoff computes capped exponential delays: base doubled per
// attempt, never exceeding Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base << uint(attempt)
	// shift overflow shows up as a non-positive duration
	if d <= 0 || d > b.Max {
		return b.Max
	}
	return d
}

// Controller drives dial attempts for a session: first connect under
// CONNECTING, retries under RECONNECTING with an attempt counter that
// resets on success.
type Controller struct {
	backoff     Backoff
	maxAttempts int
	sleep       func(context.Context, time.Duration) error

	state   atomic.Int32
	onState func(State, int)
}

// NewController builds a controller from reconnect tuning. onState, if
// non-nil, observes every transition with the attempt number.
func NewController(rc tuning.Reconnect, onState func(State, int)) *Controller {
	return &Controller{
		backoff: Backoff{
			Base: time.Duration(rc.BaseDelayMs) * time.Millisecond,
			Max:  time.Duration(rc.MaxDelayMs) * time.Millisecond,
		},
		maxAttempts: rc.MaxAttempts,
		sleep:       sleepCtx,
		onState:     onState,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State, attempt int) {
	c.state.Store(int32(s))
	if c.onState != nil {
		c.onState(s, attempt)
	}
}

// Connect runs dial until it succeeds, the attempt budget runs out, or
// ctx is cancelled. reconnecting selects the RECONNECTING state for
// every attempt instead of CONNECTING for the first.
func (c *Controller) Connect(ctx context.Context, reconnecting bool, dial func(context.Context) error) error {
	attempt := 0
	for {
		if reconnecting || attempt > 0 {
			c.setState(StateReconnecting, attempt)
		} else {
			c.setState(StateConnecting, attempt)
		}
		err := dial(ctx)
		if err == nil {
			c.setState(StateConnected, attempt)
			return nil
		}
		if ctx.Err() != nil {
			c.setState(StateDisconnected, attempt)
			return ctx.Err()
		}
		attempt++
		if attempt >= c.maxAttempts {
			c.setState(StateFailed, attempt)
			return fmt.Errorf("%w: %d attempts, last error: %v", ErrMaxRetries, attempt, err)
		}
		delay := c.backoff.Delay(attempt - 1)
		if serr := c.sleep(ctx, delay); serr != nil {
			c.setState(StateDisconnected, attempt)
			return serr
		}
	}
}
