package protocol

import (
	"encoding/json"
	"fmt"
)

// DecodeServer decodes a server->client frame into its concrete
// message struct. The caller dispatches with a type switch, so each
// message type has exactly one handler.
func DecodeServer(b []byte) (any, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeGameState:
		return decodeAs[GameStateMsg](b)
	case TypePlayerJoined:
		return decodeAs[PlayerJoinedMsg](b)
	case TypePlayerLeft:
		return decodeAs[PlayerLeftMsg](b)
	case TypeStateClaimed:
		return decodeAs[StateClaimedMsg](b)
	case TypeStateAttacked:
		return decodeAs[StateAttackedMsg](b)
	case TypeResourcesUpdated:
		return decodeAs[ResourcesUpdatedMsg](b)
	case TypePresenceSync:
		return decodeAs[PresenceSyncMsg](b)
	case TypeError:
		return decodeAs[ErrorMsg](b)
	default:
		return nil, fmt.Errorf("%s: %q", ErrUnknownMessageType, env.Type)
	}
}

func decodeAs[T any](b []byte) (T, error) {
	var m T
	err := json.Unmarshal(b, &m)
	return m, err
}
