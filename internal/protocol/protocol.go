package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// client -> server
	TypeJoinGame    = "JOIN_GAME"
	TypeLeaveGame   = "LEAVE_GAME"
	TypeClaimState  = "CLAIM_STATE"
	TypeAttackState = "ATTACK_STATE"

	// server -> client
	TypeGameState        = "GAME_STATE"
	TypePlayerJoined     = "PLAYER_JOINED"
	TypePlayerLeft       = "PLAYER_LEFT"
	TypeStateClaimed     = "STATE_CLAIMED"
	TypeStateAttacked    = "STATE_ATTACKED"
	TypeResourcesUpdated = "RESOURCES_UPDATED"
	TypePresenceSync     = "PRESENCE_SYNC"
	TypeError            = "ERROR"
)

// Envelope lets us route unknown JSON messages by type before
// committing to a full decode.
type Envelope struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}
