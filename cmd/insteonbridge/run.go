package main

import (
	"context"
	"fmt"

	_ "github.com/nerrad567/gray-logic-insteon/migrations"

	"github.com/nerrad567/gray-logic-insteon/internal/bridge"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/command"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/db"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon/modem"
	"github.com/nerrad567/gray-logic-insteon/internal/transport"
)

// run is the bridge lifecycle, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to config.yaml
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting insteon bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing left to log to
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)
	go watchDebugSignal(ctx, log, cfg.Logging.Level)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Link database storage
	store, sqlDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB != nil {
		defer func() {
			log.Info("closing database")
			if closeErr := sqlDB.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}
	log.Info("link database storage ready",
		"backend", cfg.Insteon.StorageBackend,
		"storage", cfg.Insteon.Storage,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var recorder insteon.Recorder
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(influxConfig(cfg))
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Component("influxdb").Error("InfluxDB write error", "error", err)
		})
		recorder = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Transport gate to the modem gateway
	transportLog := log.Component("transport")
	gateway := transport.NewMQTTLink(mqttClient, cfg.Gateway.TxTopic, cfg.Gateway.RxTopic, byte(cfg.MQTT.QoS), transportLog)
	queue := transport.NewQueue(gateway, cfg.GetReplyTimeout(), transportLog)
	if attachErr := gateway.Attach(queue); attachErr != nil {
		return fmt.Errorf("attaching gateway: %w", attachErr)
	}
	queue.Start(ctx)
	defer func() {
		log.Info("stopping transport queue", "pending", queue.Len())
		queue.Stop()
	}()
	log.Info("gateway attached",
		"tx", cfg.Gateway.TxTopic,
		"rx", cfg.Gateway.RxTopic,
		"reply_timeout", cfg.GetReplyTimeout(),
	)

	// Modem and its registry
	m := modem.New(modem.Options{
		Address:    cfg.ModemAddress(),
		Protocol:   queue,
		Store:      store,
		StorageDir: cfg.Insteon.Storage,
		Logger:     log.Component("modem"),
		Recorder:   recorder,
	})

	// Start the bridge before loading devices so each one is announced
	bridgeLog := log.Component("bridge")
	b, err := bridge.New(bridge.Options{
		MQTT:       mqttClient,
		Topics:     mqttClient.Topics(),
		Dispatcher: command.NewDispatcher(m.Registry(), bridgeLog),
		Registry:   m.Registry(),
		QoS:        byte(cfg.MQTT.QoS),
		Logger:     bridgeLog,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if startErr := b.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping bridge")
		if stopErr := b.Stop(); stopErr != nil {
			log.Error("error stopping bridge", "error", stopErr)
		}
	}()

	health := bridge.NewHealthReporter(bridge.HealthConfig{
		Topic:     mqttClient.Topics().Health(),
		Version:   version,
		Publisher: mqttClient,
		Registry:  m.Registry(),
		Pending:   queue.Len,
		Logger:    bridgeLog,
	})
	health.Start(ctx)
	defer health.Stop()

	devices := m.LoadConfig(modemConfig(cfg))
	log.Info("modem ready",
		"modem", m.Addr().String(),
		"devices", len(devices),
		"startup_refresh", cfg.Insteon.StartupRefresh,
	)

	if err := healthCheck(ctx, sqlDB, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// health, bridge, transport queue, InfluxDB, database, MQTT, log file.
	log.Info("insteon bridge stopped")
	return nil
}

// openStore creates the link database store for the configured backend.
// The returned *database.DB is nil for the JSON backend.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, *database.DB, error) {
	if cfg.Insteon.StorageBackend != config.StorageSQLite {
		return db.FileStore{}, nil, nil
	}

	sqlDB, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlDB.Migrate(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return db.NewSQLiteStore(sqlDB), sqlDB, nil
}

// modemConfig converts the validated device list.
func modemConfig(cfg *config.Config) modem.Config {
	mc := modem.Config{StartupRefresh: cfg.Insteon.StartupRefresh}
	for _, d := range cfg.Insteon.Devices {
		addr, err := insteon.ParseAddress(d.Address)
		if err != nil {
			continue // rejected by Validate
		}
		mc.Devices = append(mc.Devices, modem.DeviceConfig{Address: addr, Name: d.Name})
	}
	return mc
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - sqlDB: Database to check (nil with the JSON backend)
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, sqlDB *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if sqlDB != nil {
		if err := sqlDB.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// influxConfig tags every point with the modem address unless the config
// already sets a "modem" tag.
func influxConfig(cfg *config.Config) config.InfluxDBConfig {
	ic := cfg.InfluxDB
	tags := make(map[string]string, len(ic.Tags)+1)
	for k, v := range ic.Tags {
		tags[k] = v
	}
	if _, ok := tags["modem"]; !ok {
		tags["modem"] = cfg.ModemAddress().String()
	}
	ic.Tags = tags
	return ic
}
