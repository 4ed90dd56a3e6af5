package mapdata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Symmetrizes(t *testing.T) {
	m, err := New(map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": nil,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !m.Adjacent("B", "A") {
		t.Fatalf("expected B adjacent to A")
	}
	if !m.Adjacent("C", "B") {
		t.Fatalf("expected C adjacent to B")
	}
	if m.Adjacent("A", "C") {
		t.Fatalf("A and C must not be adjacent")
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected empty map rejected")
	}
	if _, err := New(map[string][]string{"A": {"A"}}); err == nil {
		t.Fatalf("expected self-neighbor rejected")
	}
	if _, err := New(map[string][]string{"A": {"X"}}); err == nil {
		t.Fatalf("expected unknown neighbor rejected")
	}
}

func TestDefault_Consistent(t *testing.T) {
	m := Default()
	if m.Len() < 40 {
		t.Fatalf("default map too small: %d", m.Len())
	}
	for _, id := range m.RegionIDs() {
		for _, n := range m.Neighbors(id) {
			if !m.Adjacent(n, id) {
				t.Fatalf("adjacency not symmetric: %s->%s", id, n)
			}
		}
	}
	if !m.Adjacent("TX", "OK") || !m.Adjacent("TX", "NM") {
		t.Fatalf("expected TX adjacency present")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "map.yaml")
	raw := []byte("regions:\n  TX: [NM, OK]\n  NM: [OK]\n  OK: []\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Len() != 3 || !m.Adjacent("OK", "NM") {
		t.Fatalf("unexpected map: %v", m.RegionIDs())
	}
}
