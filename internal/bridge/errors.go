package bridge

import "errors"

// Sentinel errors for the bridge.
var (
	// ErrNotStarted is returned by operations that need a running bridge.
	ErrNotStarted = errors.New("bridge: not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("bridge: already started")
)
