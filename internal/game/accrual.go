package game

import (
	"time"

	"landgrab.io/internal/protocol"
)

// Accruer is the periodic resource grant. The hub fires it on a fixed
// interval while at least one participant is connected anywhere and
// stops the ticker when the server goes idle.
type Accruer struct {
	reg  *Registry
	gain int
}

func NewAccruer(reg *Registry, gainPerRegion int) *Accruer {
	return &Accruer{reg: reg, gain: gainPerRegion}
}

// Tick grants gain*ownedRegions to every player in every instance and
// returns one RESOURCES_UPDATED event per instance. A single call is
// exactly one tick's delta regardless of elapsed wall time, so a tick
// is idempotent in the sense that re-running it with unchanged state
// yields the same per-tick delta.
func (a *Accruer) Tick(now time.Time) []protocol.ResourcesUpdatedMsg {
	var out []protocol.ResourcesUpdatedMsg
	a.reg.ForEach(func(in *Instance) {
		owned := make(map[string]int, len(in.Players))
		for _, r := range in.Regions {
			if r.OwnerID != "" {
				owned[r.OwnerID]++
			}
		}
		update := protocol.ResourcesUpdatedMsg{
			Type:            protocol.TypeResourcesUpdated,
			GameID:          in.ID,
			PlayerResources: make(map[string]int, len(in.Players)),
		}
		for id, p := range in.Players {
			p.Resources += a.gain * owned[id]
			update.PlayerResources[id] = p.Resources
		}
		in.LastResourceUpdate = now
		out = append(out, update)
	})
	return out
}
