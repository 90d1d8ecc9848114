package modem

import (
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// Refresh downloads the modem's link database, replacing the mirror.
//
// The modem is always read: force only matters for remote devices, where
// the mirror may be reused.
func (m *Modem) Refresh(_ bool, onDone insteon.DoneFunc) {
	m.logger.Info("modem refreshing database", "modem", m.addr.String())
	m.table.Read(onDone)
}

// RefreshAll refreshes the modem and then every registered device in
// registration order.
//
// All downloads are queued at once. The transport runs them one at a time in
// submission order, so onDone is attached to the last device only and fires
// once it is done. With no devices onDone is attached to the modem refresh.
// A device that skips its download still completes through the transport,
// so the last callback never overtakes an earlier download.
func (m *Modem) RefreshAll(force bool, onDone insteon.DoneFunc) {
	devices := m.registry.Devices()
	m.logger.Info("refreshing all databases", "devices", len(devices), "force", force)

	if len(devices) == 0 {
		m.Refresh(force, onDone)
		return
	}

	m.Refresh(force, nil)

	last := len(devices) - 1
	for i, d := range devices {
		var cb insteon.DoneFunc
		if i == last {
			cb = onDone
		}
		d.Refresh(force, cb)
	}
}
