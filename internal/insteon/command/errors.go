package command

import "errors"

// Sentinel errors for command decoding and dispatch.
var (
	ErrUnknownCommand   = errors.New("command: unknown command")
	ErrInvalidArguments = errors.New("command: invalid arguments")
	ErrUnsupported      = errors.New("command: not supported by this device")
)
