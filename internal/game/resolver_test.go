package game

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"landgrab.io/internal/game/tuning"
	"landgrab.io/internal/mapdata"
	"landgrab.io/internal/protocol"
)

// testMap: R1-R2, R1-R3, R2-R3 form a cluster; R4-R5 are an island.
func testMap(t *testing.T) *mapdata.Map {
	t.Helper()
	m, err := mapdata.New(map[string][]string{
		"R1": {"R2", "R3"},
		"R2": {"R3"},
		"R3": nil,
		"R4": {"R5"},
		"R5": nil,
	})
	if err != nil {
		t.Fatalf("test map: %v", err)
	}
	return m
}

func newTestResolver(t *testing.T, tune tuning.Tuning) (*Resolver, *Registry) {
	t.Helper()
	reg := NewRegistry(testMap(t), func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	n := 0
	r := NewResolver(reg, tune,
		WithClock(reg.now),
		WithIDFunc(func() string {
			n++
			return fmt.Sprintf("P%d", n)
		}),
		WithRand(rand.New(rand.NewSource(1))),
	)
	return r, reg
}

func TestJoinGame(t *testing.T) {
	r, reg := newTestResolver(t, tuning.Defaults())

	a, in := r.JoinGame("g1", "alice")
	if a.ID != "P1" || a.Resources != 10 {
		t.Fatalf("unexpected player: %+v", a)
	}
	if a.Color == "" {
		t.Fatalf("no color assigned")
	}
	if in.Players[a.ID] != a {
		t.Fatalf("player not in registry")
	}
	if reg.Get("g1") != in {
		t.Fatalf("instance not registered")
	}

	b, _ := r.JoinGame("g1", "bob")
	if b.Color == a.Color {
		t.Fatalf("colors must be unique per instance")
	}
}

func TestJoinGame_ColorFallbackWhenPaletteExhausted(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	seen := make(map[string]bool)
	for i := 0; i < len(colorPalette)+3; i++ {
		p, _ := r.JoinGame("g1", "p")
		if p.Color == "" {
			t.Fatalf("player %d got empty color", i)
		}
		seen[p.Color] = true
	}
	if len(seen) < len(colorPalette) {
		t.Fatalf("palette colors reused before exhaustion: %d distinct", len(seen))
	}
}

func TestClaimState(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, in := r.JoinGame("g1", "alice")

	out, rerr := r.ClaimState("g1", a.ID, "R1", "c-1")
	if rerr != nil {
		t.Fatalf("claim: %v", rerr)
	}
	if a.Resources != 5 {
		t.Fatalf("resources after claim = %d, want 5", a.Resources)
	}
	if in.Regions["R1"].OwnerID != a.ID {
		t.Fatalf("owner = %q, want %q", in.Regions["R1"].OwnerID, a.ID)
	}
	if in.Regions["R1"].CapturedAt.IsZero() {
		t.Fatalf("capturedAt not stamped")
	}
	if out.Resources != 5 || out.CorrelationID != "c-1" {
		t.Fatalf("unexpected event: %+v", out)
	}
}

func TestClaimState_AlreadyOwnedNeverMutates(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, _ := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup claim: %v", rerr)
	}

	_, rerr := r.ClaimState("g1", b.ID, "R1", "")
	if rerr == nil || rerr.Code != protocol.ErrAlreadyOwned {
		t.Fatalf("expected AlreadyOwned, got %v", rerr)
	}
	if b.Resources != 10 {
		t.Fatalf("rejected claim mutated resources: %d", b.Resources)
	}
}

func TestClaimState_InsufficientResources(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, _ := r.JoinGame("g1", "alice")
	a.Resources = 4

	_, rerr := r.ClaimState("g1", a.ID, "R1", "")
	if rerr == nil || rerr.Code != protocol.ErrInsufficientResources {
		t.Fatalf("expected InsufficientResources, got %v", rerr)
	}
	if a.Resources != 4 {
		t.Fatalf("rejected claim mutated resources: %d", a.Resources)
	}
}

func TestAttackState_InvalidTargets(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, _ := r.JoinGame("g1", "alice")
	a.Resources = 100
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup: %v", rerr)
	}

	// Neutral target.
	if _, rerr := r.AttackState("g1", a.ID, "R2", 0, ""); rerr == nil || rerr.Code != protocol.ErrInvalidTarget {
		t.Fatalf("expected InvalidTarget for neutral, got %v", rerr)
	}
	// Self-owned target.
	if _, rerr := r.AttackState("g1", a.ID, "R1", 0, ""); rerr == nil || rerr.Code != protocol.ErrInvalidTarget {
		t.Fatalf("expected InvalidTarget for self, got %v", rerr)
	}
	if a.Resources != 95 {
		t.Fatalf("rejected attacks mutated resources: %d", a.Resources)
	}
}

// Spec scenario: B attacks A's R1 while owning nothing adjacent.
// Strengths are 0 vs 0, ties favor the defender, and the attack cost
// is charged regardless.
func TestAttackState_TieFavorsDefender(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, in := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup: %v", rerr)
	}

	out, rerr := r.AttackState("g1", b.ID, "R1", 0, "c-2")
	if rerr != nil {
		t.Fatalf("attack: %v", rerr)
	}
	if out.Success {
		t.Fatalf("tie must favor defender")
	}
	if out.AttackStrength != 0 || out.DefenseStrength != 0 {
		t.Fatalf("strengths = %d/%d, want 0/0", out.AttackStrength, out.DefenseStrength)
	}
	if b.Resources != 0 {
		t.Fatalf("attacker resources = %d, want 0 (10 - base cost 10)", b.Resources)
	}
	if in.Regions["R1"].OwnerID != a.ID {
		t.Fatalf("ownership changed on failed attack")
	}
	if out.TargetPlayerID != a.ID || out.CorrelationID != "c-2" {
		t.Fatalf("unexpected event: %+v", out)
	}
}

func TestAttackState_AdjacentTerritoryWins(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, in := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	a.Resources = 100
	b.Resources = 100

	// A holds R1; B holds R2 and R3, both adjacent to R1.
	for _, c := range []struct{ pid, state string }{{a.ID, "R1"}, {b.ID, "R2"}, {b.ID, "R3"}} {
		if _, rerr := r.ClaimState("g1", c.pid, c.state, ""); rerr != nil {
			t.Fatalf("setup claim %s: %v", c.state, rerr)
		}
	}

	out, rerr := r.AttackState("g1", b.ID, "R1", 0, "")
	if rerr != nil {
		t.Fatalf("attack: %v", rerr)
	}
	if !out.Success {
		t.Fatalf("expected success at 2 vs 0")
	}
	if out.AttackStrength != 2 || out.DefenseStrength != 0 {
		t.Fatalf("strengths = %d/%d, want 2/0", out.AttackStrength, out.DefenseStrength)
	}
	if in.Regions["R1"].OwnerID != b.ID {
		t.Fatalf("ownership did not transfer")
	}
}

func TestAttackState_ExtraResourcesBonus(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, in := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	a.Resources = 100
	b.Resources = 100
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup: %v", rerr)
	}

	// floor(9/5) = +1 strength; cost 10+9 = 19.
	out, rerr := r.AttackState("g1", b.ID, "R1", 9, "")
	if rerr != nil {
		t.Fatalf("attack: %v", rerr)
	}
	if out.AttackStrength != 1 {
		t.Fatalf("attack strength = %d, want 1", out.AttackStrength)
	}
	if !out.Success {
		t.Fatalf("1 vs 0 must succeed")
	}
	if b.Resources != 81 {
		t.Fatalf("attacker resources = %d, want 81", b.Resources)
	}
	if in.Regions["R1"].OwnerID != b.ID {
		t.Fatalf("ownership did not transfer")
	}
}

func TestAttackState_InsufficientResourcesNoDeduction(t *testing.T) {
	r, _ := newTestResolver(t, tuning.Defaults())
	a, _ := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup: %v", rerr)
	}
	b.Resources = 9

	_, rerr := r.AttackState("g1", b.ID, "R1", 0, "")
	if rerr == nil || rerr.Code != protocol.ErrInsufficientResources {
		t.Fatalf("expected InsufficientResources, got %v", rerr)
	}
	if b.Resources != 9 {
		t.Fatalf("rejected attack mutated resources: %d", b.Resources)
	}
}

func TestAdjacencyEnforcement(t *testing.T) {
	tune := tuning.Defaults()
	tune.EnforceAdjacency = true
	r, _ := newTestResolver(t, tune)
	a, _ := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	a.Resources = 100
	b.Resources = 100

	// First claim is unconstrained.
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("first claim: %v", rerr)
	}
	// Subsequent claims must border owned territory. R4 is an island.
	if _, rerr := r.ClaimState("g1", a.ID, "R4", ""); rerr == nil || rerr.Code != protocol.ErrNotAdjacent {
		t.Fatalf("expected NotAdjacent claim, got %v", rerr)
	}
	if _, rerr := r.ClaimState("g1", a.ID, "R2", ""); rerr != nil {
		t.Fatalf("adjacent claim: %v", rerr)
	}

	// Attacks require an owned neighbor; no cost is charged on the
	// rejection path.
	if _, rerr := r.ClaimState("g1", b.ID, "R4", ""); rerr != nil {
		t.Fatalf("island claim: %v", rerr)
	}
	before := a.Resources
	if _, rerr := r.AttackState("g1", a.ID, "R4", 0, ""); rerr == nil || rerr.Code != protocol.ErrNotAdjacent {
		t.Fatalf("expected NotAdjacent attack, got %v", rerr)
	}
	if a.Resources != before {
		t.Fatalf("rejected attack mutated resources")
	}
}

func TestLeaveGame_RevertsOwnershipAndEvicts(t *testing.T) {
	r, reg := newTestResolver(t, tuning.Defaults())
	a, in := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")
	if _, rerr := r.ClaimState("g1", a.ID, "R1", ""); rerr != nil {
		t.Fatalf("setup: %v", rerr)
	}

	evicted, lerr := r.LeaveGame("g1", a.ID)
	if lerr != nil || evicted {
		t.Fatalf("leave: evicted=%v err=%v", evicted, lerr)
	}
	if in.Regions["R1"].OwnerID != "" {
		t.Fatalf("leaver's region not reverted to neutral")
	}

	evicted, lerr = r.LeaveGame("g1", b.ID)
	if lerr != nil || !evicted {
		t.Fatalf("last leave: evicted=%v err=%v", evicted, lerr)
	}
	if reg.Get("g1") != nil {
		t.Fatalf("instance not evicted")
	}

	// A fresh instance, not the prior state.
	fresh := reg.GetOrCreate("g1")
	if len(fresh.Players) != 0 {
		t.Fatalf("recreated instance carries players")
	}
	for id, region := range fresh.Regions {
		if region.OwnerID != "" {
			t.Fatalf("recreated instance carries ownership: %s", id)
		}
	}
}

// Resources stay non-negative across any sequence of operations.
func TestResourcesNeverNegative(t *testing.T) {
	r, reg := newTestResolver(t, tuning.Defaults())
	a, _ := r.JoinGame("g1", "alice")
	b, _ := r.JoinGame("g1", "bob")

	rng := rand.New(rand.NewSource(7))
	states := []string{"R1", "R2", "R3", "R4", "R5"}
	players := []string{a.ID, b.ID}
	for i := 0; i < 500; i++ {
		pid := players[rng.Intn(len(players))]
		state := states[rng.Intn(len(states))]
		if rng.Intn(2) == 0 {
			_, _ = r.ClaimState("g1", pid, state, "")
		} else {
			_, _ = r.AttackState("g1", pid, state, rng.Intn(12), "")
		}
		for _, p := range reg.Get("g1").Players {
			if p.Resources < 0 {
				t.Fatalf("op %d: player %s has negative resources %d", i, p.ID, p.Resources)
			}
		}
	}
}
