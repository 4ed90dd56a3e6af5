package game

import (
	"time"

	"landgrab.io/internal/protocol"
)

// Player is a participant in one game instance.
type Player struct {
	ID           string
	Name         string
	Color        string
	Resources    int
	ConnectedAt  time.Time
	LastActiveAt time.Time
}

// Region is one claimable map region. OwnerID is the only mutable
// field; "" means neutral. Neighbors is fixed at map-load time.
type Region struct {
	ID         string
	OwnerID    string
	CapturedAt time.Time
	Neighbors  []string
}

// Instance is the authoritative state of one game. All access goes
// through the hub loop; nothing outside the loop holds a reference.
type Instance struct {
	ID                 string
	CreatedAt          time.Time
	Players            map[string]*Player
	Regions            map[string]*Region
	LastResourceUpdate time.Time
}

// OwnedCount returns how many regions playerID owns.
func (in *Instance) OwnedCount(playerID string) int {
	n := 0
	for _, r := range in.Regions {
		if r.OwnerID == playerID {
			n++
		}
	}
	return n
}

// OwnedNeighbors counts regions owned by playerID adjacent to regionID.
func (in *Instance) OwnedNeighbors(playerID, regionID string) int {
	r := in.Regions[regionID]
	if r == nil {
		return 0
	}
	n := 0
	for _, nb := range r.Neighbors {
		if adj := in.Regions[nb]; adj != nil && adj.OwnerID == playerID {
			n++
		}
	}
	return n
}

// Snapshot renders the instance into its wire shape.
func (in *Instance) Snapshot() protocol.GameSnapshot {
	snap := protocol.GameSnapshot{
		ID:                 in.ID,
		CreatedAt:          in.CreatedAt,
		Players:            make(map[string]protocol.PlayerInfo, len(in.Players)),
		Regions:            make(map[string]protocol.RegionInfo, len(in.Regions)),
		LastResourceUpdate: in.LastResourceUpdate,
	}
	for id, p := range in.Players {
		snap.Players[id] = p.Info()
	}
	for id, r := range in.Regions {
		ri := protocol.RegionInfo{
			ID:        r.ID,
			OwnerID:   r.OwnerID,
			Neighbors: r.Neighbors,
		}
		if !r.CapturedAt.IsZero() {
			at := r.CapturedAt
			ri.CapturedAt = &at
		}
		snap.Regions[id] = ri
	}
	return snap
}

func (p *Player) Info() protocol.PlayerInfo {
	return protocol.PlayerInfo{
		ID:           p.ID,
		Name:         p.Name,
		Color:        p.Color,
		Resources:    p.Resources,
		ConnectedAt:  p.ConnectedAt,
		LastActiveAt: p.LastActiveAt,
	}
}
