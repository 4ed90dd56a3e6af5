package client

import (
	"sort"
	"sync"

	"landgrab.io/internal/protocol"
)

// PresenceTracker mirrors the server's connected participant set. Each
// PRESENCE_SYNC carries the full set, so applying one replaces the
// previous view wholesale.
type PresenceTracker struct {
	mu      sync.RWMutex
	players map[string]protocol.PlayerInfo
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{players: make(map[string]protocol.PlayerInfo)}
}

func (p *PresenceTracker) Sync(players []protocol.PlayerInfo) {
	next := make(map[string]protocol.PlayerInfo, len(players))
	for _, pl := range players {
		next[pl.ID] = pl
	}
	p.mu.Lock()
	p.players = next
	p.mu.Unlock()
}

func (p *PresenceTracker) Contains(playerID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.players[playerID]
	return ok
}

// Players returns the current set ordered by player id.
func (p *PresenceTracker) Players() []protocol.PlayerInfo {
	p.mu.RLock()
	out := make([]protocol.PlayerInfo, 0, len(p.players))
	for _, pl := range p.players {
		out = append(out, pl)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (p *PresenceTracker) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.players)
}
