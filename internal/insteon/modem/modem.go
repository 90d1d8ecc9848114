package modem

import (
	"fmt"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/db"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/link"
)

// Options holds everything the modem and the devices it creates share.
// There is no package level state: every operation goes through a Modem
// built from these options.
type Options struct {
	// Address is the modem's own address.
	Address insteon.Address

	// Registry indexes the remote devices. A new one is created when nil.
	Registry *insteon.Registry

	// Protocol is the transport gate all messages go through.
	Protocol insteon.Protocol

	// Store persists link databases under StorageDir. A nil Store or an
	// empty StorageDir keeps mirrors in memory.
	Store      db.Store
	StorageDir string

	Logger   insteon.Logger
	Recorder insteon.Recorder
}

// Modem is the local Insteon modem (PLM/hub) and the entry point for every
// user level operation.
type Modem struct {
	addr       insteon.Address
	registry   *insteon.Registry
	protocol   insteon.Protocol
	store      db.Store
	storageDir string
	table      *link.Table
	updater    *link.Updater
	logger     insteon.Logger
	recorder   insteon.Recorder
}

// New creates the modem, loads its mirror from storage and installs it as
// the registry's modem.
//
// Parameters:
//   - opts: Shared configuration; Address and Protocol are required
//
// Returns:
//   - *Modem: Ready to use modem
func New(opts Options) *Modem {
	logger := opts.Logger
	if logger == nil {
		logger = insteon.NoopLogger{}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = insteon.NoopRecorder{}
	}
	registry := opts.Registry
	if registry == nil {
		registry = insteon.NewRegistry()
		registry.SetLogger(logger)
	}

	var mirror *db.Mirror
	if opts.StorageDir != "" {
		mirror = db.Load(opts.Store, db.PathFor(opts.StorageDir, opts.Address), logger)
	} else {
		mirror = db.NewMirror(opts.Store)
		mirror.SetLogger(logger)
	}
	mirror.SetOwner(opts.Address)
	logger.Info("modem database loaded",
		"modem", opts.Address.String(),
		"entries", mirror.Len(),
		"path", mirror.Path(),
	)

	m := &Modem{
		addr:       opts.Address,
		registry:   registry,
		protocol:   opts.Protocol,
		store:      opts.Store,
		storageDir: opts.StorageDir,
		table: &link.Table{
			// The zero endpoint addresses the modem itself.
			Owner:    opts.Address,
			Mirror:   mirror,
			Protocol: opts.Protocol,
			Logger:   logger,
			Recorder: recorder,
		},
		updater:  link.NewUpdater(registry, logger),
		logger:   logger,
		recorder: recorder,
	}
	registry.SetModem(m)
	return m
}

// Addr implements insteon.Device.
func (m *Modem) Addr() insteon.Address { return m.addr }

// Name implements insteon.Device.
func (m *Modem) Name() string { return insteon.ModemName }

// Registry returns the device registry.
func (m *Modem) Registry() *insteon.Registry { return m.registry }

// DB returns the modem's mirror.
func (m *Modem) DB() *db.Mirror { return m.table.Mirror }

// LinkData returns the modem's record payload: [group, 0, 0] for both roles.
func (m *Modem) LinkData(group uint8, _ bool) [insteon.DataSize]byte {
	return [insteon.DataSize]byte{group, 0x00, 0x00}
}

// WriteEntry writes one record to the modem.
func (m *Modem) WriteEntry(entry insteon.Entry, onDone insteon.DoneFunc) {
	m.table.Write(entry, onDone)
}

// DeleteEntry deletes one record from the modem.
func (m *Modem) DeleteEntry(entry insteon.Entry, onDone insteon.DoneFunc) {
	m.table.Delete(entry, onDone)
}

// AddLink implements insteon.Device.
func (m *Modem) AddLink(req insteon.LinkRequest, onDone insteon.DoneFunc) {
	m.updater.Add(m, req, onDone)
}

// DeleteLink implements insteon.Device.
func (m *Modem) DeleteLink(req insteon.LinkRequest, onDone insteon.DoneFunc) {
	m.updater.Delete(m, req, onDone)
}

// Linking puts the modem into all-link mode for group so the next device
// whose set button is held links to it.
func (m *Modem) Linking(group uint8, onDone insteon.DoneFunc) {
	m.logger.Info("modem entering linking mode", "group", group)

	m.protocol.Send(insteon.StartLinking{Group: group}, insteon.HandlerFunc(func(r insteon.Reply) insteon.Status {
		if r.Err != nil || !r.Ack {
			err := r.Err
			if err == nil {
				err = insteon.ErrNAK
			}
			m.logger.Warn("modem linking mode failed", "group", group, "error", err)
			onDone.Call(false, fmt.Sprintf("Modem linking mode failed: %v", err), nil)
			return insteon.Finished
		}
		onDone.Call(true, fmt.Sprintf("Modem linking mode active for group %d", group), nil)
		return insteon.Finished
	}))
}

func (m *Modem) String() string {
	return fmt.Sprintf("Modem %s", m.addr)
}
