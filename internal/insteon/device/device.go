package device

import (
	"fmt"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/db"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/link"
)

// pairGroup is the modem group devices are linked to when pairing.
const pairGroup = 0x01

// Default payload bytes for records written on a remote device.
const (
	controllerData1 = 0x03 // number of retries
	responderData1  = 0xff // on level
	responderData2  = 0x1f // ramp rate
)

// Options configures a remote device.
type Options struct {
	Address insteon.Address
	Name    string

	// Registry resolves link peers and the modem.
	Registry *insteon.Registry

	Protocol insteon.Protocol

	// Store and StorageDir select where the mirror is persisted. A nil
	// Store keeps it in memory.
	Store      db.Store
	StorageDir string

	Logger   insteon.Logger
	Recorder insteon.Recorder
}

// Device is a generic remote Insteon device with an all-link database.
type Device struct {
	addr     insteon.Address
	name     string
	registry *insteon.Registry
	table    *link.Table
	updater  *link.Updater
	logger   insteon.Logger
}

// New creates a device and loads its mirror from storage.
// The device is not registered; callers add it to the Registry.
func New(opts Options) *Device {
	logger := opts.Logger
	if logger == nil {
		logger = insteon.NoopLogger{}
	}

	var mirror *db.Mirror
	if opts.StorageDir != "" {
		mirror = db.Load(opts.Store, db.PathFor(opts.StorageDir, opts.Address), logger)
	} else {
		mirror = db.NewMirror(opts.Store)
		mirror.SetLogger(logger)
	}
	mirror.SetOwner(opts.Address)

	return &Device{
		addr:     opts.Address,
		name:     opts.Name,
		registry: opts.Registry,
		table: &link.Table{
			Endpoint: opts.Address,
			Owner:    opts.Address,
			Mirror:   mirror,
			Protocol: opts.Protocol,
			Logger:   logger,
			Recorder: opts.Recorder,
		},
		updater: link.NewUpdater(opts.Registry, logger),
		logger:  logger,
	}
}

// Addr implements insteon.Device.
func (d *Device) Addr() insteon.Address { return d.addr }

// Name implements insteon.Device.
func (d *Device) Name() string { return d.name }

// DB returns the device's mirror.
func (d *Device) DB() *db.Mirror { return d.table.Mirror }

// LinkData returns the default record payload for this device.
//
// Controller records carry the retry count; responder records carry the on
// level and ramp rate. The last byte is the group.
func (d *Device) LinkData(group uint8, isController bool) [insteon.DataSize]byte {
	if isController {
		return [insteon.DataSize]byte{controllerData1, 0x00, group}
	}
	return [insteon.DataSize]byte{responderData1, responderData2, group}
}

// WriteEntry writes one record to the device.
func (d *Device) WriteEntry(entry insteon.Entry, onDone insteon.DoneFunc) {
	d.table.Write(entry, onDone)
}

// DeleteEntry deletes one record from the device.
func (d *Device) DeleteEntry(entry insteon.Entry, onDone insteon.DoneFunc) {
	d.table.Delete(entry, onDone)
}

// Refresh downloads the device's link database.
//
// Without force a mirror that already holds records is kept. onDone still
// waits for a Barrier through the protocol, so it never fires ahead of
// downloads submitted earlier.
func (d *Device) Refresh(force bool, onDone insteon.DoneFunc) {
	if force || d.table.Mirror.Len() == 0 {
		d.table.Read(onDone)
		return
	}

	d.logger.Debug("device database already loaded, skipping download",
		"device", insteon.Label(d),
		"entries", d.table.Mirror.Len(),
	)
	d.table.Protocol.Send(insteon.Barrier{}, insteon.HandlerFunc(func(r insteon.Reply) insteon.Status {
		if r.Err != nil {
			onDone.Call(false, fmt.Sprintf("%s refresh failed: %v", d.addr, r.Err), nil)
			return insteon.Finished
		}
		onDone.Call(true, fmt.Sprintf("%s database already loaded", d.addr), nil)
		return insteon.Finished
	}))
}

// AddLink implements insteon.Device.
func (d *Device) AddLink(req insteon.LinkRequest, onDone insteon.DoneFunc) {
	d.updater.Add(d, req, onDone)
}

// DeleteLink implements insteon.Device.
func (d *Device) DeleteLink(req insteon.LinkRequest, onDone insteon.DoneFunc) {
	d.updater.Delete(d, req, onDone)
}

// Pair links the device and the modem on group 1 in both directions so the
// modem hears the device's broadcasts.
//
// The sequence downloads the device database first, then writes a two-way
// responder and a two-way controller link with the modem.
func (d *Device) Pair(onDone insteon.DoneFunc) {
	modem := d.registry.Modem()
	if modem == nil {
		onDone.Call(false, "No modem configured", nil)
		return
	}
	d.logger.Info("pairing device", "device", insteon.Label(d), "modem", modem.Addr().String())

	target := modem.Addr().String()
	seq := insteon.NewCommandSeq(fmt.Sprintf("%s paired", d.addr), onDone)
	seq.SetLogger(d.logger)
	seq.Add(func(next insteon.DoneFunc) {
		d.Refresh(true, next)
	})
	seq.Add(func(next insteon.DoneFunc) {
		d.AddLink(insteon.LinkRequest{Target: target, Group: pairGroup, IsController: false, TwoWay: true}, next)
	})
	seq.Add(func(next insteon.DoneFunc) {
		d.AddLink(insteon.LinkRequest{Target: target, Group: pairGroup, IsController: true, TwoWay: true}, next)
	})
	seq.Run()
}
