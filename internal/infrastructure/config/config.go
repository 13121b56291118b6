package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Washcycle Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Appliance ApplianceConfig `yaml:"appliance"`
	Engine    EngineConfig    `yaml:"engine"`
	Outputs   OutputsConfig   `yaml:"outputs"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ApplianceConfig identifies the controlled appliance.
type ApplianceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// EngineConfig contains cycle execution tuning.
type EngineConfig struct {
	// BatchSize bounds concurrently-live event timers per phase.
	BatchSize int `yaml:"batch_size"`

	// PollIntervalMS is the sleep between trigger/skip checks while a
	// phase runs, in milliseconds.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// TriggerCooldownMS is how long after phase start sensor triggers
	// are ignored, in milliseconds.
	TriggerCooldownMS int `yaml:"trigger_cooldown_ms"`

	// BoundaryBufferMS pads the batch boundary timer past the batch's
	// latest fire time, in milliseconds.
	BoundaryBufferMS int `yaml:"boundary_buffer_ms"`
}

// OutputsConfig describes the output bank wiring.
type OutputsConfig struct {
	// Roles maps component role names to physical pin numbers, in bank
	// order. Empty means the stock appliance wiring.
	Roles []OutputRoleConfig `yaml:"roles"`
}

// OutputRoleConfig is one role→pin assignment.
type OutputRoleConfig struct {
	Role string `yaml:"role"`
	Pin  int    `yaml:"pin"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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
}

// TelemetryConfig contains telemetry collector settings.
type TelemetryConfig struct {
	// IntervalMS is how often the collector samples engine, outputs and
	// sensors, in milliseconds.
	IntervalMS int `yaml:"interval_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
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
// Environment variables follow the pattern: WASHCYCLE_SECTION_KEY
// For example: WASHCYCLE_DATABASE_PATH, WASHCYCLE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Appliance: ApplianceConfig{
			ID:   "washer-001",
			Name: "Washcycle",
		},
		Engine: EngineConfig{
			BatchSize:         200,
			PollIntervalMS:    100,
			TriggerCooldownMS: 15000,
			BoundaryBufferMS:  50,
		},
		Database: DatabaseConfig{
			Path:        "./data/washcycle.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "washcycle-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Telemetry: TelemetryConfig{
			IntervalMS: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WASHCYCLE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("WASHCYCLE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("WASHCYCLE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WASHCYCLE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WASHCYCLE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("WASHCYCLE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("WASHCYCLE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("WASHCYCLE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Appliance validation
	if c.Appliance.ID == "" {
		errs = append(errs, "appliance.id is required")
	}

	// Engine validation
	if c.Engine.BatchSize < 1 {
		errs = append(errs, "engine.batch_size must be at least 1")
	}
	if c.Engine.PollIntervalMS < 1 {
		errs = append(errs, "engine.poll_interval_ms must be at least 1")
	}
	if c.Engine.TriggerCooldownMS < 0 {
		errs = append(errs, "engine.trigger_cooldown_ms must not be negative")
	}

	// Outputs validation
	seen := make(map[string]bool, len(c.Outputs.Roles))
	for _, rp := range c.Outputs.Roles {
		if rp.Role == "" {
			errs = append(errs, "outputs.roles entries require a role name")
			continue
		}
		if seen[rp.Role] {
			errs = append(errs, fmt.Sprintf("outputs.roles: duplicate role %q", rp.Role))
		}
		seen[rp.Role] = true
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetPollInterval returns the engine poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalMS) * time.Millisecond
}

// GetTriggerCooldown returns the sensor trigger cooldown as a Duration.
func (c *Config) GetTriggerCooldown() time.Duration {
	return time.Duration(c.Engine.TriggerCooldownMS) * time.Millisecond
}

// GetBoundaryBuffer returns the batch boundary buffer as a Duration.
func (c *Config) GetBoundaryBuffer() time.Duration {
	return time.Duration(c.Engine.BoundaryBufferMS) * time.Millisecond
}

// GetTelemetryInterval returns the telemetry sampling interval as a Duration.
func (c *Config) GetTelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.IntervalMS) * time.Millisecond
}
