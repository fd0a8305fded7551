// PanelWatt Core - Whole-Home Energy Monitoring
//
// This is the main entry point for the PanelWatt Core service. It polls an
// 18-circuit panel metering device over local HTTP, persists normalized
// readings to SQLite, maintains hourly/daily/cost rollups, and serves the
// dashboard's REST and WebSocket API.
//
// SQLite is the source of truth; MQTT and InfluxDB are optional sinks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/panelwatt/panelwatt-core/migrations"

	"github.com/panelwatt/panelwatt-core/internal/api"
	"github.com/panelwatt/panelwatt-core/internal/collector"
	"github.com/panelwatt/panelwatt-core/internal/energy"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/config"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/database"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/influxdb"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/logging"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/mqtt"
	"github.com/panelwatt/panelwatt-core/internal/meter"
	"github.com/panelwatt/panelwatt-core/internal/rollup"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	startedAt := time.Now()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting PanelWatt Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	devices := energy.NewDeviceRepository(db.DB)
	circuits := energy.NewCircuitRepository(db.DB)
	readings := energy.NewReadingRepository(db.DB)
	rollups := energy.NewRollupRepository(db.DB)
	costs := energy.NewCostRepository(db.DB)
	rates := energy.NewBillingRateRepository(db.DB)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device client and collector
	meterClient := meter.New(cfg.Device, log)

	collectorOpts := collector.Options{
		Meter:        meterClient,
		Devices:      devices,
		Circuits:     circuits,
		Readings:     readings,
		Host:         cfg.Device.Host,
		PollInterval: cfg.GetPollInterval(),
		Logger:       log,
	}
	if mqttClient != nil {
		collectorOpts.Publisher = mqttClient
	}
	if influxClient != nil {
		collectorOpts.Mirror = influxClient
	}
	coll := collector.New(collectorOpts)

	collectorDone := make(chan error, 1)
	go func() {
		collectorDone <- coll.Run(ctx)
	}()

	// Rollup engine: hourly aggregation, cost attribution, retention purge.
	// Time-of-use windows are wall-clock local times.
	engine := rollup.NewEngine(rollup.Options{
		Readings:        readings,
		Rollups:         rollups,
		Costs:           costs,
		Rates:           rates,
		IntervalSeconds: cfg.Device.PollInterval,
		Retention:       cfg.GetRetention(),
		Location:        time.Local,
		Logger:          log,
	})
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting rollup engine: %w", err)
	}
	defer engine.Stop()

	// API server
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Devices:   devices,
		Circuits:  circuits,
		Readings:  readings,
		Rollups:   rollups,
		Costs:     costs,
		Rates:     rates,
		MQTT:      mqttClient,
		Collector: coll,
		Version:   version,
		StartedAt: startedAt,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case err := <-collectorDone:
		if err != nil {
			return fmt.Errorf("collector failed: %w", err)
		}
	}

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Rollup engine
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("PanelWatt Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PANELWATT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PANELWATT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
