package link

import (
	"fmt"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/db"
)

// Endpoint is one side of a link as seen by the Updater.
type Endpoint interface {
	insteon.Device

	// DB returns the endpoint's local mirror.
	DB() *db.Mirror

	// LinkData returns the default 3 byte payload for a record on this
	// endpoint with the given group and role.
	LinkData(group uint8, isController bool) [insteon.DataSize]byte

	// WriteEntry adds or updates one record in the hardware table.
	WriteEntry(entry insteon.Entry, onDone insteon.DoneFunc)

	// DeleteEntry removes one record from the hardware table.
	DeleteEntry(entry insteon.Entry, onDone insteon.DoneFunc)
}

// Finder resolves a user supplied target token to a device.
// *insteon.Registry satisfies it.
type Finder interface {
	Find(token string) insteon.Device
}

// Updater runs the two-phase link add and delete operations.
//
// A link needs a controller record on one endpoint and the matching
// responder record on the peer. A two-way update writes the local record
// first and then asks the peer to write the complement. The two steps run
// through an insteon.CommandSeq: a failing peer step leaves the local
// change in place and reports the failure.
type Updater struct {
	finder Finder
	logger insteon.Logger
}

// NewUpdater creates an updater resolving peers through finder.
func NewUpdater(finder Finder, logger insteon.Logger) *Updater {
	if logger == nil {
		logger = insteon.NoopLogger{}
	}
	return &Updater{finder: finder, logger: logger}
}

// peer is the resolved other side of a link request.
type peer struct {
	addr   insteon.Address
	device insteon.Device // nil when the address is not a known device
}

// resolve looks up req.Target. A token that neither names a device nor
// parses as an address is an error.
func (u *Updater) resolve(self Endpoint, req insteon.LinkRequest) (peer, error) {
	if d := u.finder.Find(req.Target); d != nil {
		return peer{addr: d.Addr(), device: d}, nil
	}

	addr, err := insteon.ParseAddress(req.Target)
	if err != nil {
		return peer{}, fmt.Errorf("%w: %q", insteon.ErrDeviceNotFound, req.Target)
	}

	if req.TwoWay {
		u.logger.Warn("link peer is not a known device, updating one side only",
			"endpoint", insteon.Label(self),
			"role", insteon.RoleString(!req.IsController),
			"peer", addr.String(),
		)
	}
	return peer{addr: addr}, nil
}

// Add writes the record described by req on self and, when req.TwoWay and
// the peer is a known device, the complementary record on the peer.
//
// onDone receives (true, summary, *insteon.Entry of the last write) when all
// steps succeed and the failing step's result otherwise.
func (u *Updater) Add(self Endpoint, req insteon.LinkRequest, onDone insteon.DoneFunc) {
	p, err := u.resolve(self, req)
	if err != nil {
		u.logger.Error("link add failed", "endpoint", insteon.Label(self), "target", req.Target, "error", err)
		onDone.Call(false, fmt.Sprintf("Unknown device %q", req.Target), nil)
		return
	}

	var data [insteon.DataSize]byte
	if req.Data == nil {
		data = self.LinkData(req.Group, req.IsController)
	} else {
		if len(req.Data) != insteon.DataSize {
			u.logger.Error("link add failed",
				"endpoint", insteon.Label(self),
				"error", insteon.ErrInvalidData,
				"length", len(req.Data),
			)
			onDone.Call(false, fmt.Sprintf("Invalid link data: need %d bytes, got %d", insteon.DataSize, len(req.Data)), nil)
			return
		}
		copy(data[:], req.Data)
	}

	entry := insteon.Entry{Addr: p.addr, Group: req.Group, IsController: req.IsController, Data: data}

	seq := insteon.NewCommandSeq(
		fmt.Sprintf("%s link added: %s", self.Addr(), entry),
		onDone,
	)
	seq.SetLogger(u.logger)
	seq.Add(func(next insteon.DoneFunc) {
		self.WriteEntry(entry, next)
	})

	if req.TwoWay && p.device != nil {
		complement := insteon.LinkRequest{
			Target:       self.Addr().String(),
			Group:        req.Group,
			IsController: !req.IsController,
		}
		seq.Add(func(next insteon.DoneFunc) {
			p.device.AddLink(complement, next)
		})
	}

	u.logger.Debug("link add",
		"endpoint", insteon.Label(self),
		"entry", entry.String(),
		"steps", seq.Len(),
	)
	seq.Run()
}

// Delete removes the record described by req from self and, when req.TwoWay
// and the peer is a known device, the complementary record on the peer.
//
// The local record must be present in the mirror. If it is not, onDone
// receives (false, "Entry doesn't exist", nil) and nothing is sent.
func (u *Updater) Delete(self Endpoint, req insteon.LinkRequest, onDone insteon.DoneFunc) {
	p, err := u.resolve(self, req)
	if err != nil {
		u.logger.Error("link delete failed", "endpoint", insteon.Label(self), "target", req.Target, "error", err)
		onDone.Call(false, fmt.Sprintf("Unknown device %q", req.Target), nil)
		return
	}

	entry, ok := self.DB().Find(p.addr, req.Group, req.IsController)
	if !ok {
		u.logger.Error("link delete failed",
			"endpoint", insteon.Label(self),
			"peer", p.addr.String(),
			"group", req.Group,
			"role", insteon.RoleString(req.IsController),
			"error", insteon.ErrEntryNotFound,
		)
		onDone.Call(false, "Entry doesn't exist", nil)
		return
	}

	seq := insteon.NewCommandSeq(
		fmt.Sprintf("%s link removed: %s", self.Addr(), entry),
		onDone,
	)
	seq.SetLogger(u.logger)
	seq.Add(func(next insteon.DoneFunc) {
		self.DeleteEntry(entry, next)
	})

	if req.TwoWay && p.device != nil {
		complement := insteon.LinkRequest{
			Target:       self.Addr().String(),
			Group:        req.Group,
			IsController: !req.IsController,
		}
		seq.Add(func(next insteon.DoneFunc) {
			p.device.DeleteLink(complement, next)
		})
	}

	u.logger.Debug("link delete",
		"endpoint", insteon.Label(self),
		"entry", entry.String(),
		"steps", seq.Len(),
	)
	seq.Run()
}
