package device

import (
	"testing"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/db"
)

type mockProtocol struct {
	sent   []insteon.Message
	tables map[insteon.Address][]insteon.Entry
	nak    map[insteon.Address]bool
}

func newMockProtocol() *mockProtocol {
	return &mockProtocol{
		tables: make(map[insteon.Address][]insteon.Entry),
		nak:    make(map[insteon.Address]bool),
	}
}

func (p *mockProtocol) Send(msg insteon.Message, h insteon.Handler) {
	p.sent = append(p.sent, msg)

	switch m := msg.(type) {
	case insteon.GetFirstRecord:
		for _, e := range p.tables[m.Endpoint] {
			e := e
			h.HandleReply(insteon.Reply{Ack: true, Entry: &e})
		}
		h.HandleReply(insteon.Reply{Ack: false})
	case insteon.WriteRecord:
		h.HandleReply(insteon.Reply{Ack: !p.nak[m.Endpoint]})
	case insteon.DeleteRecord:
		h.HandleReply(insteon.Reply{Ack: !p.nak[m.Endpoint]})
	default:
		h.HandleReply(insteon.Reply{Ack: true})
	}
}

// fakeModem is the modem side of a pairing: it accepts link writes into
// its own mirror.
type fakeModem struct {
	addr   insteon.Address
	mirror *db.Mirror
}

func (m *fakeModem) Addr() insteon.Address                            { return m.addr }
func (m *fakeModem) Name() string                                     { return insteon.ModemName }
func (m *fakeModem) Refresh(bool, insteon.DoneFunc)                   {}
func (m *fakeModem) RefreshAll(bool, insteon.DoneFunc)                {}
func (m *fakeModem) Linking(uint8, insteon.DoneFunc)                  {}
func (m *fakeModem) DeleteLink(insteon.LinkRequest, insteon.DoneFunc) {}

func (m *fakeModem) AddLink(req insteon.LinkRequest, onDone insteon.DoneFunc) {
	peer, err := insteon.ParseAddress(req.Target)
	if err != nil {
		onDone(false, "bad target", nil)
		return
	}
	m.mirror.Add(insteon.Entry{Addr: peer, Group: req.Group, IsController: req.IsController})
	onDone(true, "modem updated", nil)
}

var (
	modemAddr = insteon.MustParseAddress("44.85.11")
	lampAddr  = insteon.MustParseAddress("11.22.33")
)

type doneRecorder struct {
	calls   int
	success bool
	msg     string
}

func (r *doneRecorder) done(success bool, msg string, _ any) {
	r.calls++
	r.success, r.msg = success, msg
}

func newTestDevice(t *testing.T, proto insteon.Protocol) (*Device, *fakeModem, *insteon.Registry) {
	t.Helper()
	reg := insteon.NewRegistry()
	modem := &fakeModem{addr: modemAddr, mirror: db.NewMirror(nil)}
	reg.SetModem(modem)

	d := New(Options{
		Address:    lampAddr,
		Name:       "lamp",
		Registry:   reg,
		Protocol:   proto,
		Store:      db.FileStore{},
		StorageDir: t.TempDir(),
	})
	reg.Register(d)
	return d, modem, reg
}

func TestDevice_LinkData(t *testing.T) {
	d, _, _ := newTestDevice(t, newMockProtocol())

	if got := d.LinkData(5, true); got != [3]byte{0x03, 0x00, 5} {
		t.Errorf("LinkData(ctrl) = %v", got)
	}
	if got := d.LinkData(5, false); got != [3]byte{0xff, 0x1f, 5} {
		t.Errorf("LinkData(resp) = %v", got)
	}
}

func TestDevice_Refresh(t *testing.T) {
	proto := newMockProtocol()
	proto.tables[lampAddr] = []insteon.Entry{{Addr: modemAddr, Group: 1}}
	d, _, _ := newTestDevice(t, proto)

	var rec doneRecorder
	d.Refresh(false, rec.done)
	if !rec.success || d.DB().Len() != 1 {
		t.Fatalf("first Refresh() = %v, %d entries", rec.success, d.DB().Len())
	}

	t.Run("populated mirror is kept without force", func(t *testing.T) {
		sent := len(proto.sent)
		d.Refresh(false, rec.done)
		if !rec.success || rec.msg != "11.22.33 database already loaded" {
			t.Errorf("Refresh(false) = (%v, %q)", rec.success, rec.msg)
		}
		if len(proto.sent) != sent+1 || proto.sent[sent].Type() != insteon.TypeBarrier {
			t.Errorf("Refresh(false) sent %v, want one barrier", proto.sent[sent:])
		}
		if d.DB().Len() != 1 {
			t.Errorf("mirror entries = %d, want 1 kept", d.DB().Len())
		}
	})

	t.Run("force downloads again", func(t *testing.T) {
		sent := len(proto.sent)
		d.Refresh(true, rec.done)
		if len(proto.sent) != sent+1 {
			t.Errorf("Refresh(true) sent %d messages, want 1", len(proto.sent)-sent)
		}
	})
}

func TestDevice_Pair(t *testing.T) {
	proto := newMockProtocol()
	d, modem, _ := newTestDevice(t, proto)

	var rec doneRecorder
	d.Pair(rec.done)

	if rec.calls != 1 || !rec.success {
		t.Fatalf("Pair() = (%d, %v, %q)", rec.calls, rec.success, rec.msg)
	}
	if _, ok := d.DB().Find(modemAddr, 1, false); !ok {
		t.Error("device responder record for modem missing")
	}
	if _, ok := d.DB().Find(modemAddr, 1, true); !ok {
		t.Error("device controller record for modem missing")
	}
	if modem.mirror.Len() != 2 {
		t.Errorf("modem got %d complementary records, want 2", modem.mirror.Len())
	}
	if proto.sent[0].Type() != insteon.TypeGetFirstRecord {
		t.Errorf("first message = %s, want the database download", proto.sent[0].Type())
	}
}

func TestDevice_PairStopsOnFailure(t *testing.T) {
	proto := newMockProtocol()
	proto.nak[lampAddr] = true
	d, modem, _ := newTestDevice(t, proto)

	var rec doneRecorder
	d.Pair(rec.done)

	if rec.calls != 1 || rec.success {
		t.Fatalf("Pair() = (%d, %v), want failure", rec.calls, rec.success)
	}
	if modem.mirror.Len() != 0 {
		t.Error("modem should not be updated after the device rejected the write")
	}
}

func TestDevice_PairWithoutModem(t *testing.T) {
	d := New(Options{Address: lampAddr, Registry: insteon.NewRegistry(), Protocol: newMockProtocol()})

	var rec doneRecorder
	d.Pair(rec.done)
	if rec.success {
		t.Error("Pair() without modem should fail")
	}
}
