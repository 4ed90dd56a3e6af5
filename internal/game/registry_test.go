package game

import (
	"testing"
	"time"
)

func TestRegistryGetOrCreate(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(testMap(t), func() time.Time { return fixed })

	if reg.Get("g1") != nil {
		t.Fatalf("instance exists before creation")
	}
	in := reg.GetOrCreate("g1")
	if in.ID != "g1" || !in.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected instance: %+v", in)
	}
	if len(in.Regions) != reg.Map().Len() {
		t.Fatalf("regions = %d, want %d", len(in.Regions), reg.Map().Len())
	}
	for id, r := range in.Regions {
		if r.OwnerID != "" {
			t.Fatalf("region %s not neutral", id)
		}
		if len(r.Neighbors) != len(reg.Map().Neighbors(id)) {
			t.Fatalf("region %s neighbors not wired", id)
		}
	}
	if reg.GetOrCreate("g1") != in {
		t.Fatalf("GetOrCreate not idempotent")
	}
	if reg.Len() != 1 {
		t.Fatalf("len = %d", reg.Len())
	}
}
