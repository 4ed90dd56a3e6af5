package game

import (
	"time"

	"landgrab.io/internal/mapdata"
)

// Registry is the in-memory authoritative store of active game
// instances. It is constructor-injected into the resolver and the
// accrual scheduler and holds no transport state. The owning hub loop
// serializes all access; Registry itself does no locking.
type Registry struct {
	regions   *mapdata.Map
	instances map[string]*Instance
	now       func() time.Time
}

func NewRegistry(regions *mapdata.Map, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		regions:   regions,
		instances: make(map[string]*Instance),
		now:       now,
	}
}

// GetOrCreate returns the instance for gameID, creating it lazily
// with every map region neutral.
func (r *Registry) GetOrCreate(gameID string) *Instance {
	if in, ok := r.instances[gameID]; ok {
		return in
	}
	now := r.now()
	in := &Instance{
		ID:                 gameID,
		CreatedAt:          now,
		Players:            make(map[string]*Player),
		Regions:            make(map[string]*Region, r.regions.Len()),
		LastResourceUpdate: now,
	}
	for _, id := range r.regions.RegionIDs() {
		in.Regions[id] = &Region{ID: id, Neighbors: r.regions.Neighbors(id)}
	}
	r.instances[gameID] = in
	return in
}

func (r *Registry) Get(gameID string) *Instance {
	return r.instances[gameID]
}

// Evict drops an instance. Called by the resolver when the last
// player leaves; a later GetOrCreate starts fresh.
func (r *Registry) Evict(gameID string) {
	delete(r.instances, gameID)
}

func (r *Registry) Len() int { return len(r.instances) }

// ForEach visits every instance. Iteration order is unspecified.
func (r *Registry) ForEach(fn func(*Instance)) {
	for _, in := range r.instances {
		fn(in)
	}
}

func (r *Registry) Map() *mapdata.Map { return r.regions }
