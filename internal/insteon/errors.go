package insteon

import "errors"

// Domain errors for the insteon package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, insteon.ErrEntryNotFound) {
//	    // nothing to delete
//	}
var (
	// ErrInvalidAddress is returned when an address cannot be parsed.
	ErrInvalidAddress = errors.New("insteon: invalid address")

	// ErrDeviceNotFound is returned when a name or address does not resolve
	// to a registered endpoint.
	ErrDeviceNotFound = errors.New("insteon: device not found")

	// ErrEntryNotFound is returned when a link record does not exist in a mirror.
	ErrEntryNotFound = errors.New("insteon: link entry not found")

	// ErrInvalidData is returned when a link payload is not exactly 3 bytes.
	ErrInvalidData = errors.New("insteon: link data must be 3 bytes")

	// ErrTimeout is delivered to a reply handler when no reply arrives in time.
	ErrTimeout = errors.New("insteon: reply timed out")

	// ErrNAK is returned when the modem or a device refuses a command.
	ErrNAK = errors.New("insteon: command refused")
)
