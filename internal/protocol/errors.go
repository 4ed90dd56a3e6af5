package protocol

const (
	// Protocol/transport validation.
	ErrUnknownMessageType = "E_UNKNOWN_MESSAGE_TYPE"
	ErrBadRequest         = "E_BAD_REQUEST"

	// Rule/action layer.
	ErrInsufficientResources = "E_INSUFFICIENT_RESOURCES"
	ErrAlreadyOwned          = "E_ALREADY_OWNED"
	ErrInvalidTarget         = "E_INVALID_TARGET"
	ErrNotAdjacent           = "E_NOT_ADJACENT"
	ErrUnknownPlayer         = "E_UNKNOWN_PLAYER"
	ErrUnknownRegion         = "E_UNKNOWN_REGION"
	ErrRateLimited           = "E_RATE_LIMITED"

	// Transport layer (client side).
	ErrTransport          = "E_TRANSPORT"
	ErrMaxRetriesExceeded = "E_MAX_RETRIES_EXCEEDED"
)

var knownCodes = map[string]struct{}{
	ErrUnknownMessageType:    {},
	ErrBadRequest:            {},
	ErrInsufficientResources: {},
	ErrAlreadyOwned:          {},
	ErrInvalidTarget:         {},
	ErrNotAdjacent:           {},
	ErrUnknownPlayer:         {},
	ErrUnknownRegion:         {},
	ErrRateLimited:           {},
	ErrTransport:             {},
	ErrMaxRetriesExceeded:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
