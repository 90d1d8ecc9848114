package insteon

import (
	"sync"
	"testing"
)

// stubDevice is a minimal Device for registry tests.
type stubDevice struct {
	addr Address
	name string
}

func (d *stubDevice) Addr() Address                    { return d.addr }
func (d *stubDevice) Name() string                     { return d.name }
func (d *stubDevice) Refresh(bool, DoneFunc)           {}
func (d *stubDevice) AddLink(LinkRequest, DoneFunc)    {}
func (d *stubDevice) DeleteLink(LinkRequest, DoneFunc) {}

func newStub(addr, name string) *stubDevice {
	return &stubDevice{addr: MustParseAddress(addr), name: name}
}

type stubModem struct {
	stubDevice
}

func (m *stubModem) RefreshAll(bool, DoneFunc) {}
func (m *stubModem) Linking(uint8, DoneFunc)   {}

func newStubModem(addr string) *stubModem {
	return &stubModem{stubDevice{addr: MustParseAddress(addr)}}
}

func TestRegistry_FindModem(t *testing.T) {
	reg := NewRegistry()
	modem := newStubModem("44.85.11")
	reg.SetModem(modem)

	check := func(t *testing.T) {
		t.Helper()
		for _, token := range []string{"modem", "MODEM", "Modem", "44.85.11", "448511"} {
			if got := reg.Find(token); got != modem {
				t.Errorf("Find(%q) = %v, want modem", token, got)
			}
		}
	}

	t.Run("empty registry", check)

	reg.Register(newStub("11.22.33", "lamp"))
	reg.Register(newStub("aa.bb.cc", ""))
	t.Run("populated registry", check)

	// A device claiming the reserved name never shadows the modem.
	reg.Register(newStub("01.02.03", "modem"))
	t.Run("device named modem", check)
}

func TestRegistry_NameAndAddressAgree(t *testing.T) {
	reg := NewRegistry()
	reg.SetModem(newStubModem("44.85.11"))

	lamp := newStub("11.22.33", "Lamp")
	reg.Register(lamp)

	byName := reg.Find("lamp")
	byAddr := reg.Find("11.22.33")
	if byName != lamp || byAddr != lamp {
		t.Fatalf("Find(name) = %v, Find(addr) = %v, want both %v", byName, byAddr, lamp)
	}
	if reg.Find("LAMP") != lamp {
		t.Error("name lookup should be case-insensitive")
	}
}

func TestRegistry_RegisterDeregisterRestores(t *testing.T) {
	reg := NewRegistry()
	reg.SetModem(newStubModem("44.85.11"))
	existing := newStub("aa.bb.cc", "hall")
	reg.Register(existing)

	tokens := []string{"lamp", "11.22.33", "hall", "aa.bb.cc", "modem", "junk"}
	before := make(map[string]Device)
	for _, tok := range tokens {
		before[tok] = reg.Find(tok)
	}
	countBefore := reg.Count()

	lamp := newStub("11.22.33", "lamp")
	reg.Register(lamp)
	reg.Register(lamp) // idempotent
	if reg.Find("lamp") != lamp {
		t.Fatal("lamp should be registered")
	}
	reg.Deregister(lamp)
	reg.Deregister(lamp) // idempotent

	for _, tok := range tokens {
		if got := reg.Find(tok); got != before[tok] {
			t.Errorf("Find(%q) = %v after register/deregister, want %v", tok, got, before[tok])
		}
	}
	if reg.Count() != countBefore {
		t.Errorf("Count() = %d, want %d", reg.Count(), countBefore)
	}
	if len(reg.Devices()) != countBefore {
		t.Errorf("len(Devices()) = %d, want %d", len(reg.Devices()), countBefore)
	}
}

func TestRegistry_SharedNameSurvivesDeregister(t *testing.T) {
	tests := []struct {
		name    string
		remove  string
		wantFor string // address Find("lamp") should return, empty for nil
	}{
		{name: "newest removed, older holder returns", remove: "11.22.33", wantFor: "aa.bb.cc"},
		{name: "older removed, newest keeps name", remove: "aa.bb.cc", wantFor: "11.22.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			b := newStub("aa.bb.cc", "lamp")
			a := newStub("11.22.33", "Lamp")
			reg.Register(b)
			reg.Register(a)

			if reg.Find("lamp") != a {
				t.Fatalf("Find(lamp) = %v, want newest registration", reg.Find("lamp"))
			}

			reg.Deregister(reg.FindAddr(MustParseAddress(tt.remove)))

			got := reg.Find("lamp")
			if got == nil || got.Addr() != MustParseAddress(tt.wantFor) {
				t.Errorf("Find(lamp) = %v, want %s", got, tt.wantFor)
			}
		})
	}

	t.Run("renamed device releases only its own name", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(newStub("aa.bb.cc", "lamp"))
		reg.Register(newStub("11.22.33", "lamp"))
		reg.Register(newStub("11.22.33", "porch"))

		if got := reg.Find("lamp"); got == nil || got.Addr() != MustParseAddress("aa.bb.cc") {
			t.Errorf("Find(lamp) = %v, want aa.bb.cc", got)
		}
		if got := reg.Find("porch"); got == nil || got.Addr() != MustParseAddress("11.22.33") {
			t.Errorf("Find(porch) = %v, want 11.22.33", got)
		}
	})
}

func TestRegistry_FindUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.SetModem(newStubModem("44.85.11"))

	if got := reg.Find("not a device"); got != nil {
		t.Errorf("Find(invalid) = %v, want nil", got)
	}
	if got := reg.Find("01.02.03"); got != nil {
		t.Errorf("Find(unregistered) = %v, want nil", got)
	}
}

func TestRegistry_ReplaceKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	a := newStub("00.00.01", "a")
	b := newStub("00.00.02", "b")
	reg.Register(a)
	reg.Register(b)

	renamed := newStub("00.00.01", "first")
	reg.Register(renamed)

	devices := reg.Devices()
	if len(devices) != 2 || devices[0] != renamed || devices[1] != b {
		t.Fatalf("Devices() = %v, want [renamed b]", devices)
	}
	if reg.Find("a") != nil {
		t.Error("old name should be dropped on replace")
	}
	if reg.Find("first") != renamed {
		t.Error("new name should resolve")
	}
}

func TestRegistry_ModemNotRegistered(t *testing.T) {
	reg := NewRegistry()
	modem := newStubModem("44.85.11")
	reg.SetModem(modem)
	reg.Register(modem)

	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
}

func TestRegistry_Subscribe(t *testing.T) {
	reg := NewRegistry()

	var mu sync.Mutex
	var seenA, seenB []Device
	unsubA := reg.Subscribe(func(d Device) {
		mu.Lock()
		seenA = append(seenA, d)
		mu.Unlock()
	})
	reg.Subscribe(func(d Device) {
		mu.Lock()
		seenB = append(seenB, d)
		mu.Unlock()
	})
	reg.Subscribe(func(Device) { panic("bad subscriber") })

	lamp := newStub("11.22.33", "lamp")
	reg.Register(lamp)
	reg.Register(lamp) // already known: no notification

	if len(seenA) != 1 || len(seenB) != 1 {
		t.Fatalf("notifications = %d/%d, want 1/1", len(seenA), len(seenB))
	}

	unsubA()
	reg.Deregister(lamp)
	reg.Register(lamp)

	if len(seenA) != 1 {
		t.Errorf("unsubscribed listener got %d notifications, want 1", len(seenA))
	}
	if len(seenB) != 2 {
		t.Errorf("listener got %d notifications, want 2 (re-registration announces again)", len(seenB))
	}
}
