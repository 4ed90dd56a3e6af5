package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"landgrab.io/internal/game/tuning"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 30 * time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s capped
		{10, 30 * time.Second},
		{100, 30 * time.Second}, // shift overflow stays capped
	}
	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestBackoffDelayMonotonic(t *testing.T) {
	b := Backoff{Base: 250 * time.Millisecond, Max: 10 * time.Second}
	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		d := b.Delay(attempt)
		if d < prev {
			t.Fatalf("Delay(%d) = %v < Delay(%d) = %v", attempt, d, attempt-1, prev)
		}
		if d > b.Max {
			t.Fatalf("Delay(%d) = %v exceeds cap %v", attempt, d, b.Max)
		}
		prev = d
	}
}

func testReconnect(maxAttempts int) tuning.Reconnect {
	return tuning.Reconnect{
		BaseDelayMs:      1,
		MaxDelayMs:       8,
		MaxAttempts:      maxAttempts,
		ConnectTimeoutMs: 100,
	}
}

type transition struct {
	state   State
	attempt int
}

func TestControllerRetriesThenConnects(t *testing.T) {
	var seen []transition
	c := NewController(testReconnect(10), func(s State, attempt int) {
		seen = append(seen, transition{s, attempt})
	})
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	fails := 3
	dial := func(context.Context) error {
		if fails > 0 {
			fails--
			return errors.New("refused")
		}
		return nil
	}
	if err := c.Connect(context.Background(), false, dial); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.State() != StateConnected {
		t.Fatalf("state = %v, want CONNECTED", c.State())
	}

	want := []transition{
		{StateConnecting, 0},
		{StateReconnecting, 1},
		{StateReconnecting, 2},
		{StateReconnecting, 3},
		{StateConnected, 3},
	}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition[%d] = %v, want %v", i, seen[i], want[i])
		}
	}

	wantSlept := []time.Duration{1 * time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	for i := range wantSlept {
		if slept[i] != wantSlept[i] {
			t.Fatalf("backoff[%d] = %v, want %v", i, slept[i], wantSlept[i])
		}
	}
}

func TestControllerMaxAttemptsFails(t *testing.T) {
	c := NewController(testReconnect(3), nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }

	dials := 0
	err := c.Connect(context.Background(), true, func(context.Context) error {
		dials++
		return errors.New("refused")
	})
	if !errors.Is(err, ErrMaxRetries) {
		t.Fatalf("err = %v, want ErrMaxRetries", err)
	}
	if dials != 3 {
		t.Fatalf("dials = %d, want 3", dials)
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %v, want FAILED", c.State())
	}
}

func TestControllerCancelDuringBackoff(t *testing.T) {
	c := NewController(testReconnect(100), nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	err := c.Connect(ctx, false, func(context.Context) error { return errors.New("refused") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state = %v, want DISCONNECTED", c.State())
	}
}

func TestControllerSuccessResetsAttempt(t *testing.T) {
	c := NewController(testReconnect(3), nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }

	// two failed rounds, then success
	fails := 2
	dial := func(context.Context) error {
		if fails > 0 {
			fails--
			return errors.New("refused")
		}
		return nil
	}
	if err := c.Connect(context.Background(), false, dial); err != nil {
		t.Fatalf("first Connect: %v", err)
	}

	// a fresh round gets the full budget again
	fails = 2
	if err := c.Connect(context.Background(), true, dial); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
}
