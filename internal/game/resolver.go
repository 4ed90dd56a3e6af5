package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"landgrab.io/internal/game/tuning"
	"landgrab.io/internal/protocol"
)

// Error is a rule-layer rejection. It is returned to the originating
// player only and never mutates registry state.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func rejectf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Resolver validates and applies join/leave/claim/attack operations
// against the registry. It is synchronous and non-blocking; the hub
// loop guarantees that no two operations on the same instance are in
// flight at once.
type Resolver struct {
	reg   *Registry
	tune  tuning.Tuning
	now   func() time.Time
	newID func() string
	rng   *rand.Rand
}

type ResolverOption func(*Resolver)

// WithClock overrides the resolver clock (tests).
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithIDFunc overrides player id generation (tests).
func WithIDFunc(fn func() string) ResolverOption {
	return func(r *Resolver) { r.newID = fn }
}

// WithRand overrides the color-fallback source (tests).
func WithRand(rng *rand.Rand) ResolverOption {
	return func(r *Resolver) { r.rng = rng }
}

func NewResolver(reg *Registry, tune tuning.Tuning, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		reg:   reg,
		tune:  tune,
		now:   time.Now,
		newID: uuid.NewString,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// JoinGame creates a player in the instance for gameID, creating the
// instance lazily. Returns the new player and the instance so the hub
// can build both the joiner snapshot and the broadcast.
func (r *Resolver) JoinGame(gameID, playerName string) (*Player, *Instance) {
	in := r.reg.GetOrCreate(gameID)
	now := r.now()
	p := &Player{
		ID:           r.newID(),
		Name:         playerName,
		Color:        pickColor(in, r.rng),
		Resources:    r.tune.InitialResources,
		ConnectedAt:  now,
		LastActiveAt: now,
	}
	in.Players[p.ID] = p
	return p, in
}

// LeaveGame removes the player. Regions owned by the leaver revert to
// neutral so region owners always reference present players. The
// instance is evicted once its player map empties; evicted reports
// that.
func (r *Resolver) LeaveGame(gameID, playerID string) (evicted bool, err *Error) {
	in := r.reg.Get(gameID)
	if in == nil {
		return false, rejectf(protocol.ErrUnknownPlayer, "no such game %q", gameID)
	}
	if _, ok := in.Players[playerID]; !ok {
		return false, rejectf(protocol.ErrUnknownPlayer, "player %q not in game %q", playerID, gameID)
	}
	for _, reg := range in.Regions {
		if reg.OwnerID == playerID {
			reg.OwnerID = ""
			reg.CapturedAt = time.Time{}
		}
	}
	delete(in.Players, playerID)
	if len(in.Players) == 0 {
		r.reg.Evict(gameID)
		return true, nil
	}
	return false, nil
}

// ClaimState claims a neutral region for playerID at ClaimCost.
func (r *Resolver) ClaimState(gameID, playerID, stateID, correlationID string) (protocol.StateClaimedMsg, *Error) {
	var out protocol.StateClaimedMsg
	in := r.reg.Get(gameID)
	if in == nil {
		return out, rejectf(protocol.ErrUnknownPlayer, "no such game %q", gameID)
	}
	p := in.Players[playerID]
	if p == nil {
		return out, rejectf(protocol.ErrUnknownPlayer, "player %q not in game %q", playerID, gameID)
	}
	reg := in.Regions[stateID]
	if reg == nil {
		return out, rejectf(protocol.ErrUnknownRegion, "no such state %q", stateID)
	}
	if p.Resources < r.tune.ClaimCost {
		return out, rejectf(protocol.ErrInsufficientResources, "claim needs %d resources, have %d", r.tune.ClaimCost, p.Resources)
	}
	if reg.OwnerID != "" {
		return out, rejectf(protocol.ErrAlreadyOwned, "state %q already owned", stateID)
	}
	if r.tune.EnforceAdjacency && in.OwnedCount(playerID) > 0 && in.OwnedNeighbors(playerID, stateID) == 0 {
		return out, rejectf(protocol.ErrNotAdjacent, "state %q does not border your territory", stateID)
	}

	now := r.now()
	p.Resources -= r.tune.ClaimCost
	p.LastActiveAt = now
	reg.OwnerID = playerID
	reg.CapturedAt = now

	return protocol.StateClaimedMsg{
		Type:          protocol.TypeStateClaimed,
		GameID:        gameID,
		StateID:       stateID,
		PlayerID:      playerID,
		Resources:     p.Resources,
		CorrelationID: correlationID,
	}, nil
}

// AttackState resolves an attack on an enemy-owned region. The cost
// (base + extra) is charged to the attacker regardless of outcome;
// ownership transfers only when attack strength strictly exceeds
// defense strength, so ties favor the defender.
func (r *Resolver) AttackState(gameID, attackerID, stateID string, extraResources int, correlationID string) (protocol.StateAttackedMsg, *Error) {
	var out protocol.StateAttackedMsg
	in := r.reg.Get(gameID)
	if in == nil {
		return out, rejectf(protocol.ErrUnknownPlayer, "no such game %q", gameID)
	}
	attacker := in.Players[attackerID]
	if attacker == nil {
		return out, rejectf(protocol.ErrUnknownPlayer, "player %q not in game %q", attackerID, gameID)
	}
	reg := in.Regions[stateID]
	if reg == nil {
		return out, rejectf(protocol.ErrUnknownRegion, "no such state %q", stateID)
	}
	if extraResources < 0 {
		return out, rejectf(protocol.ErrBadRequest, "negative extraResources")
	}
	if reg.OwnerID == "" {
		return out, rejectf(protocol.ErrInvalidTarget, "state %q is neutral; claim it instead", stateID)
	}
	if reg.OwnerID == attackerID {
		return out, rejectf(protocol.ErrInvalidTarget, "state %q is already yours", stateID)
	}
	totalCost := r.tune.AttackBaseCost + extraResources
	if attacker.Resources < totalCost {
		return out, rejectf(protocol.ErrInsufficientResources, "attack needs %d resources, have %d", totalCost, attacker.Resources)
	}
	if r.tune.EnforceAdjacency && in.OwnedNeighbors(attackerID, stateID) == 0 {
		return out, rejectf(protocol.ErrNotAdjacent, "state %q does not border your territory", stateID)
	}

	defenderID := reg.OwnerID
	attackStrength := in.OwnedNeighbors(attackerID, stateID) + extraResources/r.tune.StrengthPerExtra
	defenseStrength := in.OwnedNeighbors(defenderID, stateID)

	now := r.now()
	attacker.Resources -= totalCost
	attacker.LastActiveAt = now

	success := attackStrength > defenseStrength
	if success {
		reg.OwnerID = attackerID
		reg.CapturedAt = now
	}

	return protocol.StateAttackedMsg{
		Type:            protocol.TypeStateAttacked,
		GameID:          gameID,
		StateID:         stateID,
		PlayerID:        attackerID,
		TargetPlayerID:  defenderID,
		Success:         success,
		AttackStrength:  attackStrength,
		DefenseStrength: defenseStrength,
		Resources:       attacker.Resources,
		CorrelationID:   correlationID,
	}, nil
}
