package command

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// Dispatcher resolves a target, decodes a payload and runs it.
type Dispatcher struct {
	registry *insteon.Registry
	logger   insteon.Logger
}

// NewDispatcher creates a dispatcher resolving targets through registry.
func NewDispatcher(registry *insteon.Registry, logger insteon.Logger) *Dispatcher {
	if logger == nil {
		logger = insteon.NoopLogger{}
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Run executes payload on the endpoint named by target ("modem", a friendly
// name or an address).
//
// Every failure (unknown target, bad payload, unsupported command, a panic
// in the command) is logged and reported through onDone(false, ...).
// onDone fires at most once and may be nil. Run never panics.
func (d *Dispatcher) Run(target string, payload []byte, onDone insteon.DoneFunc) {
	var fired atomic.Bool
	done := insteon.DoneFunc(func(success bool, msg string, data any) {
		if fired.CompareAndSwap(false, true) {
			onDone.Call(success, msg, data)
		}
	})

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command panicked",
				"target", target,
				"payload", string(payload),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			done(false, fmt.Sprintf("Command failed: %v", r), nil)
		}
	}()

	dev := d.registry.Find(target)
	if dev == nil {
		d.logger.Error("command for unknown device",
			"target", target,
			"payload", string(payload),
			"error", insteon.ErrDeviceNotFound,
		)
		done(false, fmt.Sprintf("Unknown device %q", target), nil)
		return
	}

	cmd, err := Decode(payload)
	if err != nil {
		d.logger.Error("invalid command",
			"device", insteon.Label(dev),
			"payload", string(payload),
			"error", err,
		)
		done(false, err.Error(), nil)
		return
	}

	d.logger.Info("running command", "device", insteon.Label(dev), "command", cmd.Name())

	if err := Execute(dev, cmd, done); err != nil {
		d.logger.Error("command rejected",
			"device", insteon.Label(dev),
			"command", cmd.Name(),
			"error", err,
		)
		done(false, err.Error(), nil)
	}
}

// Execute runs a decoded command on dev. It returns ErrUnsupported when the
// endpoint kind cannot run the command; otherwise the result is reported
// through onDone.
func Execute(dev insteon.Device, cmd Command, onDone insteon.DoneFunc) error {
	switch c := cmd.(type) {
	case AddLink:
		dev.AddLink(c.Request, onDone)

	case DeleteLink:
		dev.DeleteLink(c.Request, onDone)

	case Refresh:
		dev.Refresh(c.Force, onDone)

	case RefreshAll:
		m, ok := dev.(insteon.Modem)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnsupported, c.Name(), insteon.Label(dev))
		}
		m.RefreshAll(c.Force, onDone)

	case Linking:
		m, ok := dev.(insteon.Modem)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnsupported, c.Name(), insteon.Label(dev))
		}
		m.Linking(c.Group, onDone)

	case Pair:
		p, ok := dev.(insteon.Pairer)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnsupported, c.Name(), insteon.Label(dev))
		}
		p.Pair(onDone)

	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return nil
}
