package insteon

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  uint32
		wantErr bool
	}{
		{name: "dotted", input: "44.85.11", wantID: 0x448511},
		{name: "colon", input: "44:85:11", wantID: 0x448511},
		{name: "spaces", input: "44 85 11", wantID: 0x448511},
		{name: "plain hex", input: "448511", wantID: 0x448511},
		{name: "0x prefix", input: "0x448511", wantID: 0x448511},
		{name: "upper case", input: "AA.BB.CC", wantID: 0xAABBCC},
		{name: "surrounding space", input: "  aa.bb.cc ", wantID: 0xAABBCC},
		{name: "too short", input: "44.85", wantErr: true},
		{name: "too long", input: "44.85.11.22", wantErr: true},
		{name: "not hex", input: "zz.85.11", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "device name", input: "lamp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("ParseAddress(%q) error = %v, want ErrInvalidAddress", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q) error = %v", tt.input, err)
			}
			if addr.ID() != tt.wantID {
				t.Errorf("ParseAddress(%q).ID() = %#x, want %#x", tt.input, addr.ID(), tt.wantID)
			}
		})
	}
}

func TestAddressForms(t *testing.T) {
	addr := MustParseAddress("0a.b1.0c")

	if got := addr.Hex(); got != "0ab10c" {
		t.Errorf("Hex() = %q, want %q", got, "0ab10c")
	}
	if got := addr.String(); got != "0A.B1.0C" {
		t.Errorf("String() = %q, want %q", got, "0A.B1.0C")
	}

	fromBytes, err := AddressFromBytes(addr.Bytes())
	if err != nil {
		t.Fatalf("AddressFromBytes() error = %v", err)
	}
	if fromBytes != addr {
		t.Errorf("AddressFromBytes() = %v, want %v", fromBytes, addr)
	}

	fromInt, err := AddressFromInt(int64(addr.ID()))
	if err != nil {
		t.Fatalf("AddressFromInt() error = %v", err)
	}
	if fromInt != addr {
		t.Errorf("AddressFromInt() = %v, want %v", fromInt, addr)
	}

	copied := addr
	if copied != addr {
		t.Error("copied address should compare equal")
	}
}

func TestAddressFromIntRange(t *testing.T) {
	if _, err := AddressFromInt(-1); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("AddressFromInt(-1) error = %v, want ErrInvalidAddress", err)
	}
	if _, err := AddressFromInt(0x1000000); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("AddressFromInt(0x1000000) error = %v, want ErrInvalidAddress", err)
	}
}

func TestAddressJSON(t *testing.T) {
	type doc struct {
		Addr Address `json:"addr"`
	}

	data, err := json.Marshal(doc{Addr: MustParseAddress("11.22.33")})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"addr":"11.22.33"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded doc
	if err := json.Unmarshal([]byte(`{"addr":"112233"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Addr.ID() != 0x112233 {
		t.Errorf("decoded id = %#x, want 0x112233", decoded.Addr.ID())
	}

	if err := json.Unmarshal([]byte(`{"addr":"not-an-address"}`), &decoded); err == nil {
		t.Error("Unmarshal() expected error for invalid address")
	}
}

func TestNewEntry(t *testing.T) {
	addr := MustParseAddress("11.22.33")

	e, err := NewEntry(addr, 3, true, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}
	if e.Data != [DataSize]byte{1, 2, 3} {
		t.Errorf("Data = %v", e.Data)
	}
	if !e.Matches(addr, 3, true) {
		t.Error("Matches() = false for own identity")
	}
	if e.Matches(addr, 3, false) {
		t.Error("Matches() = true for opposite role")
	}

	if _, err := NewEntry(addr, 3, true, []byte{1, 2}); !errors.Is(err, ErrInvalidData) {
		t.Errorf("NewEntry() with 2 bytes error = %v, want ErrInvalidData", err)
	}
}
