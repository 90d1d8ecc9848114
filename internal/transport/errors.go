package transport

import "errors"

// Sentinel errors for the transport gate.
var (
	// ErrClosed is delivered to handlers of messages that were pending or
	// sent after the queue stopped.
	ErrClosed = errors.New("transport: queue closed")

	// ErrWriteFailed is delivered when the link could not send a message.
	ErrWriteFailed = errors.New("transport: write failed")

	// ErrGateway is delivered when the gateway reports an error for a message.
	ErrGateway = errors.New("transport: gateway error")

	// ErrInvalidReply is returned when a gateway reply cannot be decoded.
	ErrInvalidReply = errors.New("transport: invalid reply")
)
