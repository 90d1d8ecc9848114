package insteon

import "fmt"

// DataSize is the size of the opaque payload carried by every link record.
const DataSize = 3

// Entry is one record in an endpoint's all-link database.
//
// A controller entry on endpoint A for address B means "A controls B in
// Group"; B needs the matching responder entry for A in the same group for
// the link to work. Pairing is not enforced by this type.
//
// The identity of an entry inside one database is (Addr, Group, IsController).
// Data is device specific and never interpreted here.
type Entry struct {
	Addr         Address        `json:"addr"`
	Group        uint8          `json:"group"`
	IsController bool           `json:"is_controller"`
	Data         [DataSize]byte `json:"data"`
}

// NewEntry builds an entry, validating the payload length.
// A nil data slice yields an all-zero payload.
func NewEntry(addr Address, group uint8, isController bool, data []byte) (Entry, error) {
	e := Entry{Addr: addr, Group: group, IsController: isController}
	if data == nil {
		return e, nil
	}
	if len(data) != DataSize {
		return Entry{}, fmt.Errorf("%w: got %d", ErrInvalidData, len(data))
	}
	copy(e.Data[:], data)
	return e, nil
}

// Matches reports whether the entry has the given identity.
func (e Entry) Matches(addr Address, group uint8, isController bool) bool {
	return e.Addr == addr && e.Group == group && e.IsController == isController
}

// SameIdentity reports whether two entries share (Addr, Group, IsController).
func (e Entry) SameIdentity(other Entry) bool {
	return e.Matches(other.Addr, other.Group, other.IsController)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s grp: %3d %s data: %02x %02x %02x",
		e.Addr, e.Group, RoleString(e.IsController), e.Data[0], e.Data[1], e.Data[2])
}

// RoleString returns the short role label used in logs and messages.
func RoleString(isController bool) string {
	if isController {
		return "CTRL"
	}
	return "RESP"
}
