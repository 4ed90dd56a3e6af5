package game

import (
	"testing"
	"time"

	"landgrab.io/internal/game/tuning"
)

// Spec scenario: A owns 2 regions and B owns 1; one tick grants +2
// and +1 respectively, and repeating the tick with unchanged state
// grants the same delta again (no cumulative double-count).
func TestAccruerTick(t *testing.T) {
	r, reg := newTestResolver(t, tuning.Defaults())
	a, _ := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	a.Resources = 100
	b.Resources = 100
	for _, c := range []struct{ pid, state string }{{a.ID, "R1"}, {a.ID, "R2"}, {b.ID, "R4"}} {
		if _, rerr := r.ClaimState("g1", c.pid, c.state, ""); rerr != nil {
			t.Fatalf("setup claim %s: %v", c.state, rerr)
		}
	}
	aBefore, bBefore := a.Resources, b.Resources

	acc := NewAccruer(reg, 1)
	now := time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC)
	updates := acc.Tick(now)
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if u.GameID != "g1" {
		t.Fatalf("gameId = %q", u.GameID)
	}
	if a.Resources != aBefore+2 || b.Resources != bBefore+1 {
		t.Fatalf("accrual deltas wrong: a=%d b=%d", a.Resources-aBefore, b.Resources-bBefore)
	}
	if u.PlayerResources[a.ID] != a.Resources || u.PlayerResources[b.ID] != b.Resources {
		t.Fatalf("event does not report full balances: %+v", u.PlayerResources)
	}
	if !reg.Get("g1").LastResourceUpdate.Equal(now) {
		t.Fatalf("lastResourceUpdate not stamped")
	}

	// Second tick: same per-tick delta.
	acc.Tick(now.Add(5 * time.Second))
	if a.Resources != aBefore+4 || b.Resources != bBefore+2 {
		t.Fatalf("second tick deltas wrong: a=%d b=%d", a.Resources-aBefore, b.Resources-bBefore)
	}
}

func TestAccruerTick_MultipleInstances(t *testing.T) {
	r, reg := newTestResolver(t, tuning.Defaults())
	a, _ := r.JoinGame("g1", "alice")
	c, _ := r.JoinGame("g2", "carol")
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup: %v", rerr)
	}
	if _, rerr := r.ClaimState("g2", c.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup: %v", rerr)
	}

	updates := NewAccruer(reg, 1).Tick(time.Now())
	if len(updates) != 2 {
		t.Fatalf("updates = %d, want one per instance", len(updates))
	}
}
