package insteon

import (
	"slices"
	"strings"
	"sync"
)

// ModemName is the reserved token that always resolves to the modem.
const ModemName = "modem"

// Registry indexes the endpoints known to the modem by address and by
// optional friendly name.
//
// The registry only supports lookup: it never talks to the network and never
// changes a link database. Devices keep their registration order, which is
// the order RefreshAll walks them in.
//
// All public methods are thread-safe.
type Registry struct {
	modem Device

	byID    map[uint32]Device
	byName  map[string]Device
	order   []uint32
	mu      sync.RWMutex
	logger  Logger
	subs    map[int]func(Device)
	nextSub int
	subMu   sync.Mutex
}

// NewRegistry creates an empty registry.
// SetModem must be called before Find can resolve the modem.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uint32]Device),
		byName: make(map[string]Device),
		subs:   make(map[int]func(Device)),
		logger: NoopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetModem sets the endpoint returned for the "modem" token and the modem address.
func (r *Registry) SetModem(modem Device) {
	r.mu.Lock()
	r.modem = modem
	r.mu.Unlock()
}

// Modem returns the modem endpoint, or nil if none has been set.
func (r *Registry) Modem() Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modem
}

// Register adds a device. Registering the same address again replaces the
// previous entry in place. Subscribers are notified when the address was not
// already registered.
func (r *Registry) Register(d Device) {
	if d == nil || IsModem(d) {
		return
	}

	id := d.Addr().ID()

	r.mu.Lock()
	old, exists := r.byID[id]
	if !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = d
	if exists {
		r.dropName(old)
	}
	var shadowed Device
	if d.Name() != "" {
		key := nameKey(d.Name())
		if prev, ok := r.byName[key]; ok && prev.Addr().ID() != id {
			shadowed = prev
		}
		r.byName[key] = d
	}
	r.mu.Unlock()

	if shadowed != nil {
		r.logger.Warn("device name already in use, newest registration wins",
			"name", d.Name(), "device", d.Addr().String(), "previous", shadowed.Addr().String())
	}

	if exists {
		r.logger.Debug("device re-registered", "device", Label(d))
		return
	}

	r.logger.Info("device registered", "device", Label(d))
	r.notify(d)
}

// Deregister removes a device by address. Unknown devices are ignored.
func (r *Registry) Deregister(d Device) {
	if d == nil {
		return
	}

	id := d.Addr().ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.byID[id]
	if !exists {
		return
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(v uint32) bool { return v == id })
	r.dropName(old)

	r.logger.Info("device deregistered", "device", Label(old))
}

// dropName releases the name index entry held by old, if it still holds
// it. The name passes to the most recently registered device that shares it.
// Callers hold r.mu.
func (r *Registry) dropName(old Device) {
	if old.Name() == "" {
		return
	}
	key := nameKey(old.Name())
	holder, ok := r.byName[key]
	if !ok || holder.Addr().ID() != old.Addr().ID() {
		return
	}
	delete(r.byName, key)
	for i := len(r.order) - 1; i >= 0; i-- {
		if d := r.byID[r.order[i]]; d.Name() != "" && nameKey(d.Name()) == key {
			r.byName[key] = d
			return
		}
	}
}

// Find resolves a token to an endpoint.
//
// Resolution order:
//  1. "modem" (any case) returns the modem
//  2. a registered friendly name (case-insensitive)
//  3. an address; the modem address returns the modem
//
// Returns nil when nothing matches or the token is not a valid address.
func (r *Registry) Find(token string) Device {
	key := nameKey(token)
	if key == ModemName {
		return r.Modem()
	}

	r.mu.RLock()
	d, ok := r.byName[key]
	r.mu.RUnlock()
	if ok {
		return d
	}

	addr, err := ParseAddress(token)
	if err != nil {
		r.logger.Debug("invalid address or unknown device name", "token", token, "error", err)
		return nil
	}

	return r.FindAddr(addr)
}

// FindAddr resolves an address to the modem or a registered device.
func (r *Registry) FindAddr(addr Address) Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.modem != nil && r.modem.Addr() == addr {
		return r.modem
	}
	if d, ok := r.byID[addr.ID()]; ok {
		return d
	}
	return nil
}

// Devices returns the registered devices in registration order.
// The modem is not included.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		devices = append(devices, r.byID[id])
	}
	return devices
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
