package insteon

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Address limits.
const (
	// addressBytes is the number of bytes in an Insteon address.
	addressBytes = 3

	// maxAddressID is the largest id a 24-bit address can hold.
	maxAddressID = 0xFFFFFF
)

// Address is the 24-bit identity of an endpoint on the Insteon network.
//
// Addresses are immutable values. Two addresses are equal when their numeric
// ids are equal, so Address can be compared with == and used as a map key.
//
// Accepted text forms:
//   - "aa.bb.cc", "aa:bb:cc", "aa bb cc": separated hex bytes
//   - "aabbcc" or "0xaabbcc": six hex digits
type Address struct {
	id uint32
}

// ParseAddress parses an address string in any of the accepted text forms.
//
// Parameters:
//   - s: Address string (case-insensitive)
//
// Returns:
//   - Address: Parsed address
//   - error: ErrInvalidAddress if parsing fails
//
// Example:
//
//	addr, err := insteon.ParseAddress("44.85.11")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(addr.Hex()) // "448511"
func ParseAddress(s string) (Address, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	raw = strings.TrimPrefix(raw, "0x")

	raw = strings.NewReplacer(".", "", ":", "", " ", "").Replace(raw)
	if len(raw) != addressBytes*2 {
		return Address{}, fmt.Errorf("%w: expected 6 hex digits, got %q", ErrInvalidAddress, s)
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q is not hex", ErrInvalidAddress, s)
	}

	return AddressFromBytes(b)
}

// MustParseAddress is like ParseAddress but panics on error.
// It is intended for constants and tests.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFromInt builds an address from its numeric id.
// Returns ErrInvalidAddress if id does not fit in 24 bits.
func AddressFromInt(id int64) (Address, error) {
	if id < 0 || id > maxAddressID {
		return Address{}, fmt.Errorf("%w: id %d out of range", ErrInvalidAddress, id)
	}
	return Address{id: uint32(id)}, nil //nolint:gosec // range checked above
}

// AddressFromBytes builds an address from its 3 wire bytes (high byte first).
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != addressBytes {
		return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, addressBytes, len(b))
	}
	return Address{id: uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])}, nil
}

// ID returns the canonical numeric id.
func (a Address) ID() uint32 {
	return a.id
}

// Bytes returns the 3 address bytes, high byte first.
func (a Address) Bytes() []byte {
	return []byte{byte(a.id >> 16), byte(a.id >> 8), byte(a.id)}
}

// Hex returns the lowercase 6 digit form used in file names and topics.
//
// Example: "448511"
func (a Address) Hex() string {
	return fmt.Sprintf("%06x", a.id)
}

// String returns the display form.
//
// Example: "44.85.11"
func (a Address) String() string {
	b := a.Bytes()
	return fmt.Sprintf("%02X.%02X.%02X", b[0], b[1], b[2])
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a.id == 0
}

// MarshalText encodes the address as its display form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts any form ParseAddress accepts, plus a bare decimal id.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err == nil {
		*a = parsed
		return nil
	}

	id, convErr := strconv.ParseInt(string(text), 10, 64)
	if convErr != nil {
		return err
	}
	parsed, err = AddressFromInt(id)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
