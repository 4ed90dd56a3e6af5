package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrUnknownMessageType,
		ErrBadRequest,
		ErrInsufficientResources,
		ErrAlreadyOwned,
		ErrInvalidTarget,
		ErrNotAdjacent,
		ErrUnknownPlayer,
		ErrUnknownRegion,
		ErrTransport,
		ErrMaxRetriesExceeded,
		ErrRateLimited,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}
