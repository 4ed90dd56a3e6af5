package protocol

import "time"

// JOIN_GAME (client -> server)
type JoinGameMsg struct {
	Type            string `json:"type"`
	GameID          string `json:"gameId"`
	PlayerName      string `json:"playerName"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	CorrelationID   string `json:"correlationId,omitempty"`
}

// LEAVE_GAME (client -> server)
type LeaveGameMsg struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// CLAIM_STATE (client -> server)
type ClaimStateMsg struct {
	Type          string `json:"type"`
	GameID        string `json:"gameId"`
	PlayerID      string `json:"playerId"`
	StateID       string `json:"stateId"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// ATTACK_STATE (client -> server)
type AttackStateMsg struct {
	Type           string `json:"type"`
	GameID         string `json:"gameId"`
	PlayerID       string `json:"playerId"`
	StateID        string `json:"stateId"`
	ExtraResources int    `json:"extraResources,omitempty"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

// PlayerInfo is the wire shape of a player inside snapshots and
// presence sets.
type PlayerInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Resources    int       `json:"resources"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// RegionInfo is the wire shape of one map region.
type RegionInfo struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId,omitempty"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	Neighbors  []string   `json:"neighbors,omitempty"`
}

// GameSnapshot is the full authoritative instance state.
type GameSnapshot struct {
	ID                 string                `json:"id"`
	CreatedAt          time.Time             `json:"createdAt"`
	Players            map[string]PlayerInfo `json:"players"`
	Regions            map[string]RegionInfo `json:"regions"`
	LastResourceUpdate time.Time             `json:"lastResourceUpdate"`
}

// GAME_STATE (server -> client): sent to a joining client only.
type GameStateMsg struct {
	Type     string       `json:"type"`
	GameID   string       `json:"gameId"`
	PlayerID string       `json:"playerId"` // the recipient's assigned id
	Game     GameSnapshot `json:"game"`
}

// PLAYER_JOINED (server -> client)
type PlayerJoinedMsg struct {
	Type          string     `json:"type"`
	GameID        string     `json:"gameId"`
	Player        PlayerInfo `json:"player"`
	CorrelationID string     `json:"correlationId,omitempty"`
}

// PLAYER_LEFT (server -> client)
type PlayerLeftMsg struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// STATE_CLAIMED (server -> client)
type StateClaimedMsg struct {
	Type          string `json:"type"`
	GameID        string `json:"gameId"`
	StateID       string `json:"stateId"`
	PlayerID      string `json:"playerId"`
	Resources     int    `json:"resources"` // claimant's balance after the claim
	CorrelationID string `json:"correlationId,omitempty"`
}

// STATE_ATTACKED (server -> client)
type StateAttackedMsg struct {
	Type            string `json:"type"`
	GameID          string `json:"gameId"`
	StateID         string `json:"stateId"`
	PlayerID        string `json:"playerId"` // attacker
	TargetPlayerID  string `json:"targetPlayerId"`
	Success         bool   `json:"success"`
	AttackStrength  int    `json:"attackStrength"`
	DefenseStrength int    `json:"defenseStrength"`
	Resources       int    `json:"resources"` // attacker's balance after the attack
	CorrelationID   string `json:"correlationId,omitempty"`
}

// RESOURCES_UPDATED (server -> client)
type ResourcesUpdatedMsg struct {
	Type            string         `json:"type"`
	GameID          string         `json:"gameId"`
	PlayerResources map[string]int `json:"playerResources"`
}

// PRESENCE_SYNC (server -> client): the full current participant set,
// not a delta.
type PresenceSyncMsg struct {
	Type    string       `json:"type"`
	GameID  string       `json:"gameId"`
	Players []PlayerInfo `json:"players"`
}

// ERROR (server -> client): returned only to the originating player.
type ErrorMsg struct {
	Type          string `json:"type"`
	GameID        string `json:"gameId,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}
