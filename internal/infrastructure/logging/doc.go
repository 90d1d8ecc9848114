// Package logging builds the bridge's log/slog logger from config.yaml.
//
//	logging:
//	  level: info        # debug, info, warn, error
//	  format: json       # json or text
//	  output: stdout     # stdout, stderr, file or both
//	  file:              # used by file and both; rotated by lumberjack
//	    path: ./logs/insteon-bridge.log
//	    max_size: 10     # MB
//	    max_backups: 5
//	    max_age: 30      # days
//	    compress: true
//
// INSTEON_BRIDGE_LOG_LEVEL overrides logging.level.
//
// Subsystems log through Component loggers:
//
//	log := logging.New(cfg.Logging, version)
//	defer log.Close()
//	queue := transport.NewQueue(link, timeout, log.Component("transport"))
//
// Link database entries and addresses are fine to log; the MQTT password
// and the InfluxDB token are not.
package logging
