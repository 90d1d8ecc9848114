package insteon

// DoneFunc is the completion callback used by every asynchronous operation.
//
// success reports whether the whole operation worked, msg is a short human
// readable summary for user interfaces, and data is the result of the last
// step (an *Entry for link updates, nil otherwise).
type DoneFunc func(success bool, msg string, data any)

// Call invokes f if it is non-nil.
func (f DoneFunc) Call(success bool, msg string, data any) {
	if f != nil {
		f(success, msg, data)
	}
}

// LinkRequest describes one link add or delete on an endpoint.
type LinkRequest struct {
	// Target is the peer endpoint: a friendly name, "modem" or an address.
	Target string

	// Group is the link group (scene/button number).
	Group uint8

	// IsController selects the role of the record written on the initiating
	// endpoint. The peer gets the opposite role.
	IsController bool

	// Data is the 3 byte payload. Nil selects the endpoint default for
	// (Group, IsController). Ignored for deletes.
	Data []byte

	// TwoWay also updates the complementary record on the peer.
	TwoWay bool
}

// Device is any addressable endpoint: the modem or a remote device.
//
// Devices are created by configuration and owned by the Registry for lookup
// only.
type Device interface {
	// Addr returns the endpoint address.
	Addr() Address

	// Name returns the optional friendly name ("" when unnamed).
	Name() string

	// Refresh reloads the endpoint link database from the hardware.
	Refresh(force bool, onDone DoneFunc)

	// AddLink adds or updates a link record (and its peer when TwoWay).
	AddLink(req LinkRequest, onDone DoneFunc)

	// DeleteLink removes a link record (and its peer when TwoWay).
	DeleteLink(req LinkRequest, onDone DoneFunc)
}

// Modem is the capability set only the modem has.
type Modem interface {
	Device

	// RefreshAll reloads the modem and every registered device.
	RefreshAll(force bool, onDone DoneFunc)

	// Linking puts the modem into all-link mode for group.
	Linking(group uint8, onDone DoneFunc)
}

// Pairer is implemented by remote devices that can link themselves to the modem.
type Pairer interface {
	Pair(onDone DoneFunc)
}

// IsModem reports whether d is the modem.
func IsModem(d Device) bool {
	_, ok := d.(Modem)
	return ok
}

// Label returns "AA.BB.CC (name)" or just the address for unnamed devices.
func Label(d Device) string {
	if d.Name() == "" {
		return d.Addr().String()
	}
	return d.Addr().String() + " (" + d.Name() + ")"
}

// Logger defines the logging interface used across the insteon packages.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}
