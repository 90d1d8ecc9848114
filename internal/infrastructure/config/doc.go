// Package config loads config.yaml for the Insteon bridge.
//
// Load starts from built-in defaults, overlays the YAML file, then applies
// INSTEON_BRIDGE_* environment variables, and finally runs Validate, which
// reports every problem in one error. Secrets (the MQTT password and the
// InfluxDB token) are best supplied through the environment so the file
// can stay world-readable.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	modem := cfg.ModemAddress()
package config
