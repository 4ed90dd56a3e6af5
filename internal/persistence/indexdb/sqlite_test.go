package indexdb

import (
	"path/filepath"
	"testing"
)

func TestSQLiteIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.LogEvent("g1", "P1", "PLAYER_JOINED", map[string]any{"name": "alice"})
	s.LogEvent("g1", "P1", "STATE_CLAIMED", map[string]any{"stateId": "TX"})
	s.LogEvent("g2", "P9", "PLAYER_JOINED", nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	events, err := s2.RecentEvents("g1", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != "PLAYER_JOINED" || events[1].Type != "STATE_CLAIMED" {
		t.Fatalf("wrong order: %+v", events)
	}
	if events[1].DataJSON == "" {
		t.Fatalf("data not stored")
	}

	n, err := s2.GameEventCount("g1")
	if err != nil || n != 2 {
		t.Fatalf("game counter = %d err=%v, want 2", n, err)
	}
	n, err = s2.GameEventCount("missing")
	if err != nil || n != 0 {
		t.Fatalf("missing game counter = %d err=%v", n, err)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
