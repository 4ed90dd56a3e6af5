package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.InitialResources != 10 || d.ClaimCost != 5 || d.AttackBaseCost != 10 {
		t.Fatalf("unexpected gameplay defaults: %+v", d)
	}
	if d.ResourceTickMs != 5000 || d.ResourceGainPerRegion != 1 || d.StrengthPerExtra != 5 {
		t.Fatalf("unexpected accrual defaults: %+v", d)
	}
	if d.Reconnect.BaseDelayMs != 1000 || d.Reconnect.MaxDelayMs != 30000 {
		t.Fatalf("unexpected reconnect defaults: %+v", d.Reconnect)
	}
}

func TestLoad_PartialFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	raw := []byte("claim_cost: 7\nenforce_adjacency: true\nreconnect:\n  max_attempts: 3\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ClaimCost != 7 {
		t.Fatalf("claim_cost not loaded: %+v", got)
	}
	if !got.EnforceAdjacency {
		t.Fatalf("enforce_adjacency not loaded")
	}
	if got.Reconnect.MaxAttempts != 3 {
		t.Fatalf("reconnect.max_attempts not loaded: %+v", got.Reconnect)
	}
	// Unset fields keep defaults.
	if got.InitialResources != 10 || got.Reconnect.MaxDelayMs != 30000 {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
