package db

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

const (
	// FileExt is the extension of persisted link databases.
	FileExt = ".json"

	// storeTimeout bounds a single persistence read or write.
	storeTimeout = 5 * time.Second
)

// PathFor returns the persistence path for an endpoint's link database:
// {dir}/{hex address}.json
func PathFor(dir string, addr insteon.Address) string {
	return filepath.Join(dir, addr.Hex()+FileExt)
}

// Mirror is the locally cached copy of one endpoint's all-link database.
//
// The hardware table is authoritative. The mirror is rebuilt by a refresh
// and updated by reply handlers after the endpoint acknowledges a change, so
// it can lag behind the hardware while a command is in flight.
//
// Entries keep insertion order. (Addr, Group, IsController) identifies an
// entry: adding an existing identity updates it in place.
//
// All public methods are thread-safe.
type Mirror struct {
	owner   insteon.Address
	path    string
	store   Store
	entries []insteon.Entry
	mu      sync.RWMutex
	logger  insteon.Logger
}

// NewMirror creates an empty mirror that persists through store.
// A nil store keeps the mirror in memory only.
func NewMirror(store Store) *Mirror {
	return &Mirror{
		store:  store,
		logger: insteon.NoopLogger{},
	}
}

// Load reads the mirror stored at path.
//
// Load never fails: a missing document yields an empty mirror, and an
// unreadable or corrupt document is logged and also yields an empty mirror.
// The returned mirror saves back to path either way.
//
// Parameters:
//   - store: Persistence backend
//   - path: Document path, usually PathFor(storageDir, addr)
//   - logger: Logger for load failures (may be nil)
//
// Returns:
//   - *Mirror: Loaded (possibly empty) mirror
func Load(store Store, path string, logger insteon.Logger) *Mirror {
	m := NewMirror(store)
	if logger != nil {
		m.logger = logger
	}
	m.path = path

	if store == nil || path == "" {
		return m
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	doc, err := store.Read(ctx, path)
	if err != nil {
		m.logger.Error("error reading link database, starting empty", "path", path, "error", err)
		return m
	}
	if doc == nil {
		return m
	}

	m.owner = doc.Address
	for _, e := range doc.Entries {
		m.addLocked(e)
	}
	m.logger.Debug("link database loaded", "path", path, "entries", len(m.entries))
	return m
}

// SetLogger sets the logger for the mirror.
func (m *Mirror) SetLogger(logger insteon.Logger) {
	m.logger = logger
}

// SetOwner records the endpoint the mirror belongs to. It is written into
// the persisted document for operators reading the stored files.
func (m *Mirror) SetOwner(addr insteon.Address) {
	m.mu.Lock()
	m.owner = addr
	m.mu.Unlock()
}

// Owner returns the endpoint address recorded with SetOwner or Load.
func (m *Mirror) Owner() insteon.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner
}

// SetPath sets where Save writes the mirror.
func (m *Mirror) SetPath(path string) {
	m.mu.Lock()
	m.path = path
	m.mu.Unlock()
}

// Path returns the persistence path ("" when unset).
func (m *Mirror) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Save writes the mirror to its store. A mirror without a store or path is
// not persisted and Save returns nil.
func (m *Mirror) Save() error {
	m.mu.RLock()
	path := m.path
	doc := &Document{
		Version: DocumentVersion,
		Address: m.owner,
		Entries: append([]insteon.Entry(nil), m.entries...),
	}
	m.mu.RUnlock()

	if m.store == nil || path == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := m.store.Write(ctx, path, doc); err != nil {
		return fmt.Errorf("saving link database %s: %w", path, err)
	}
	return nil
}

// Clear removes every entry.
func (m *Mirror) Clear() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

// Add inserts entry, or replaces the entry with the same identity.
// Returns true when an existing entry was updated.
func (m *Mirror) Add(entry insteon.Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(entry)
}

func (m *Mirror) addLocked(entry insteon.Entry) bool {
	for i := range m.entries {
		if m.entries[i].SameIdentity(entry) {
			m.entries[i] = entry
			return true
		}
	}
	m.entries = append(m.entries, entry)
	return false
}

// Delete removes the entry with the same identity as entry.
// Returns false when no such entry exists.
func (m *Mirror) Delete(entry insteon.Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].SameIdentity(entry) {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the entry for (addr, group, isController).
func (m *Mirror) Find(addr insteon.Address, group uint8, isController bool) (insteon.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.Matches(addr, group, isController) {
			return e, true
		}
	}
	return insteon.Entry{}, false
}

// FindAll returns every entry for addr, in order.
func (m *Mirror) FindAll(addr insteon.Address) []insteon.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found []insteon.Entry
	for _, e := range m.entries {
		if e.Addr == addr {
			found = append(found, e)
		}
	}
	return found
}

// Entries returns a copy of all entries in order.
func (m *Mirror) Entries() []insteon.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]insteon.Entry(nil), m.entries...)
}

// Len returns the number of entries.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Mirror) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "LinkDB: %d entries", len(m.entries))
	for _, e := range m.entries {
		b.WriteString("\n  ")
		b.WriteString(e.String())
	}
	return b.String()
}
