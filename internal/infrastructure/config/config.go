package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// Storage backends for link database mirrors.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Config is the root configuration structure for the Insteon bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Insteon  InsteonConfig  `yaml:"insteon"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InsteonConfig describes the modem and the devices linked to it.
type InsteonConfig struct {
	// Address is the modem's own address ("44.85.11").
	Address string `yaml:"address"`

	// Storage is the directory holding one link database per endpoint.
	Storage string `yaml:"storage"`

	// StorageBackend is "json" (files under Storage) or "sqlite" (the
	// database section).
	StorageBackend string `yaml:"storage_backend"`

	// StartupRefresh downloads every device database at start.
	StartupRefresh bool `yaml:"startup_refresh"`

	// ReplyTimeout is how long to wait for a gateway reply (seconds).
	ReplyTimeout int `yaml:"reply_timeout"`

	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig is one remote device entry.
type DeviceConfig struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
}

// GatewayConfig contains the MQTT topics used to talk to the modem gateway.
type GatewayConfig struct {
	// TxTopic receives outbound messages for the modem.
	TxTopic string `yaml:"tx_topic"`

	// RxTopic carries the gateway's replies.
	RxTopic string `yaml:"rx_topic"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// Tags are added to every point. The bridge adds "modem" when unset.
	Tags map[string]string `yaml:"tags"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig is the rotated log file used by output "file" and "both".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: INSTEON_BRIDGE_SECTION_KEY
// For example: INSTEON_BRIDGE_MQTT_HOST, INSTEON_BRIDGE_STORAGE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Insteon: InsteonConfig{
			Storage:        "./data/insteon",
			StorageBackend: StorageJSON,
			ReplyTimeout:   5,
		},
		Gateway: GatewayConfig{
			TxTopic: "insteon/gateway/tx",
			RxTopic: "insteon/gateway/rx",
		},
		Database: DatabaseConfig{
			Path:        "./data/insteon-bridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "insteon-bridge",
			},
			QoS:         1,
			TopicPrefix: "insteon",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/insteon-bridge.log",
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: INSTEON_BRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Insteon
	if v := os.Getenv("INSTEON_BRIDGE_MODEM_ADDRESS"); v != "" {
		cfg.Insteon.Address = v
	}
	if v := os.Getenv("INSTEON_BRIDGE_STORAGE"); v != "" {
		cfg.Insteon.Storage = v
	}
	if v := os.Getenv("INSTEON_BRIDGE_STORAGE_BACKEND"); v != "" {
		cfg.Insteon.StorageBackend = v
	}
	if v := os.Getenv("INSTEON_BRIDGE_STARTUP_REFRESH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Insteon.StartupRefresh = b
		}
	}

	// Database
	if v := os.Getenv("INSTEON_BRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("INSTEON_BRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("INSTEON_BRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("INSTEON_BRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("INSTEON_BRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("INSTEON_BRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Insteon validation
	if c.Insteon.Address == "" {
		errs = append(errs, "insteon.address is required (set INSTEON_BRIDGE_MODEM_ADDRESS)")
	} else if _, err := insteon.ParseAddress(c.Insteon.Address); err != nil {
		errs = append(errs, fmt.Sprintf("insteon.address: %v", err))
	}

	switch c.Insteon.StorageBackend {
	case StorageJSON:
		if c.Insteon.Storage == "" {
			errs = append(errs, "insteon.storage is required for the json backend")
		}
	case StorageSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("insteon.storage_backend must be %q or %q", StorageJSON, StorageSQLite))
	}

	if c.Insteon.ReplyTimeout < 1 {
		errs = append(errs, "insteon.reply_timeout must be at least 1 second")
	}

	names := make(map[string]int)
	for i, d := range c.Insteon.Devices {
		if _, err := insteon.ParseAddress(d.Address); err != nil {
			errs = append(errs, fmt.Sprintf("insteon.devices[%d].address: %v", i, err))
		}
		if d.Name == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(d.Name))
		if key == insteon.ModemName {
			errs = append(errs, fmt.Sprintf("insteon.devices[%d].name %q is reserved", i, d.Name))
		}
		if prev, dup := names[key]; dup {
			errs = append(errs, fmt.Sprintf("insteon.devices[%d].name %q duplicates devices[%d]", i, d.Name, prev))
		}
		names[key] = i
	}

	// Gateway validation
	if c.Gateway.TxTopic == "" || c.Gateway.RxTopic == "" {
		errs = append(errs, "gateway.tx_topic and gateway.rx_topic are required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
	}

	// Logging validation
	switch strings.ToLower(c.Logging.Output) {
	case "", "stdout", "stderr":
	case "file", "both":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is "+c.Logging.Output)
		}
	default:
		errs = append(errs, fmt.Sprintf("logging.output %q must be stdout, stderr, file or both", c.Logging.Output))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ModemAddress returns the parsed modem address. Only valid after Validate.
func (c *Config) ModemAddress() insteon.Address {
	addr, _ := insteon.ParseAddress(c.Insteon.Address) //nolint:errcheck // checked by Validate
	return addr
}

// GetReplyTimeout returns the gateway reply timeout as a Duration.
func (c *Config) GetReplyTimeout() time.Duration {
	return time.Duration(c.Insteon.ReplyTimeout) * time.Second
}
