package modem

import (
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/device"
)

// DeviceConfig describes one configured remote device.
type DeviceConfig struct {
	Address insteon.Address
	Name    string
}

// Config is the device section of the bridge configuration.
type Config struct {
	Devices []DeviceConfig

	// StartupRefresh downloads every device database after loading.
	StartupRefresh bool
}

// LoadConfig creates and registers the configured devices.
//
// Each device loads its mirror from storage. Entries using the modem's own
// address are skipped. With StartupRefresh every device database is then
// downloaded; the results are only logged.
//
// Returns the devices in configuration order.
func (m *Modem) LoadConfig(cfg Config) []*device.Device {
	devices := make([]*device.Device, 0, len(cfg.Devices))

	for _, dc := range cfg.Devices {
		if dc.Address == m.addr {
			m.logger.Warn("device entry uses the modem address, skipping",
				"address", dc.Address.String(),
				"name", dc.Name,
			)
			continue
		}
		if existing := m.registry.FindAddr(dc.Address); existing != nil {
			m.logger.Warn("device configured twice, last entry wins",
				"address", dc.Address.String(),
				"previous", existing.Name(),
				"name", dc.Name,
			)
		}

		d := device.New(device.Options{
			Address:    dc.Address,
			Name:       dc.Name,
			Registry:   m.registry,
			Protocol:   m.protocol,
			Store:      m.store,
			StorageDir: m.storageDir,
			Logger:     m.logger,
			Recorder:   m.recorder,
		})
		m.registry.Register(d)
		devices = append(devices, d)

		m.logger.Debug("device loaded",
			"device", insteon.Label(d),
			"entries", d.DB().Len(),
		)
	}

	m.logger.Info("devices loaded", "count", len(devices))

	if cfg.StartupRefresh {
		for _, d := range devices {
			label := insteon.Label(d)
			d.Refresh(false, func(success bool, msg string, _ any) {
				if !success {
					m.logger.Warn("startup refresh failed", "device", label, "message", msg)
					return
				}
				m.logger.Debug("startup refresh complete", "device", label, "message", msg)
			})
		}
	}

	return devices
}
