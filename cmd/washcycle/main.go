// Washcycle Core - Appliance Cycle Controller
//
// This is the main entry point for the Washcycle Core application.
// Washcycle drives a retrofitted washing machine:
//   - Named wash cycles stored as JSON documents in SQLite
//   - Phase timelines scheduled on bounded batches of timers
//   - Live sensor triggers (drum RPM, pressure frequency) ending phases early
//   - REST + WebSocket control surface, MQTT telemetry, InfluxDB history
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/washcycle-core/migrations"

	"github.com/nerrad567/washcycle-core/internal/api"
	"github.com/nerrad567/washcycle-core/internal/cycle"
	"github.com/nerrad567/washcycle-core/internal/engine"
	"github.com/nerrad567/washcycle-core/internal/gpio"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/config"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/database"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/logging"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/washcycle-core/internal/remote"
	"github.com/nerrad567/washcycle-core/internal/sensor"
	"github.com/nerrad567/washcycle-core/internal/telemetry"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit // Startup wiring: each component connects, logs, and registers its shutdown
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Washcycle Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Cycle library
	cycleRepo := cycle.NewSQLiteRepository(db.DB)

	// Output bank. The hardware driver is wired at integration; until then
	// the bank shadows levels for the API and telemetry.
	bank, err := gpio.NewBank(outputRoles(cfg), gpio.NopDriver{})
	if err != nil {
		return fmt.Errorf("creating output bank: %w", err)
	}
	defer bank.AllOff()
	log.Info("output bank initialised", "lines", bank.Lines())

	// Shared sensor store, fed by MQTT sensor topics
	readings := sensor.NewReadings()

	// WebSocket hub, shared by the engine, telemetry and the API server
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

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

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Engine state broadcasts go to the WebSocket hub, mirrored to MQTT
	// when a broker is connected.
	var engineHub engine.Broadcaster = hub
	if mqttClient != nil {
		engineHub = remote.NewStateRelay(hub, mqttClient, log)
	}

	// Cycle engine
	eng, err := engine.New(engine.Deps{
		Outputs:        bank,
		Sensors:        readings,
		Hub:            engineHub,
		Logger:         log,
		BatchSize:      cfg.Engine.BatchSize,
		PollInterval:   cfg.GetPollInterval(),
		Cooldown:       cfg.GetTriggerCooldown(),
		BoundaryBuffer: cfg.GetBoundaryBuffer(),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer func() {
		log.Info("stopping engine")
		eng.Close()
	}()
	log.Info("engine initialised", "batch_size", cfg.Engine.BatchSize)

	// Remote command bridge (optional, rides the MQTT connection)
	if mqttClient != nil {
		bridge, bridgeErr := remote.New(remote.Deps{
			Engine:  eng,
			Cycles:  cycleRepo,
			Outputs: bank,
			Logger:  log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating command bridge: %w", bridgeErr)
		}
		if attachErr := bridge.Attach(mqttClient); attachErr != nil {
			log.Warn("command bridge subscription failed", "error", attachErr)
		} else {
			log.Info("remote command bridge attached")
		}
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

	// Telemetry collector
	telemetryDeps := telemetry.Deps{
		ApplianceID: cfg.Appliance.ID,
		Engine:      eng,
		Outputs:     bank,
		Sensors:     readings,
		Readings:    readings,
		Hub:         hub,
		Logger:      log,
		Interval:    cfg.GetTelemetryInterval(),
	}
	if mqttClient != nil {
		telemetryDeps.MQTT = mqttClient
	}
	if influxClient != nil {
		telemetryDeps.TSDB = influxClient
	}
	collector, err := telemetry.New(telemetryDeps)
	if err != nil {
		return fmt.Errorf("creating telemetry collector: %w", err)
	}
	if mqttClient != nil {
		if feedErr := collector.AttachSensorFeed(mqttClient); feedErr != nil {
			log.Warn("sensor feed subscription failed", "error", feedErr)
		}
	}
	go collector.Run(ctx)
	log.Info("telemetry collector started", "interval", cfg.GetTelemetryInterval())

	// API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Engine:      eng,
		Cycles:      cycleRepo,
		Outputs:     bank,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. Engine
	// 4. MQTT (if enabled)
	// 5. Output bank, database

	log.Info("Washcycle Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WASHCYCLE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WASHCYCLE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// outputRoles builds the bank layout from configuration, falling back to
// the stock appliance wiring when no roles are configured.
func outputRoles(cfg *config.Config) gpio.RoleMap {
	if len(cfg.Outputs.Roles) == 0 {
		return gpio.DefaultRoles()
	}
	roles := make(gpio.RoleMap, 0, len(cfg.Outputs.Roles))
	for _, rp := range cfg.Outputs.Roles {
		roles = append(roles, gpio.RolePin{Role: rp.Role, Pin: rp.Pin})
	}
	return roles
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
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
