package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete remcon configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (REMCON_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the TCP listener and per-connection settings
	Server ServerConfig `mapstructure:"server"`

	// Console contains dispatcher settings
	Console ConsoleConfig `mapstructure:"console"`

	// Metrics contains Prometheus metrics settings
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Bindings lists command-to-method bindings for dynamic dispatch.
	// Entries are decoded on demand via DecodeBindings; see BindingConfig.
	Bindings []map[string]any `mapstructure:"bindings"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path (rotated)
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains the TCP listener and per-connection settings.
type ServerConfig struct {
	// Port is the TCP port to listen on for console connections
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// MaxConnections limits concurrent client connections.
	// Connections beyond the ceiling are closed immediately on accept.
	MaxConnections int `mapstructure:"max_connections" validate:"min=1"`

	// AllowedIPs lists client addresses permitted to connect.
	// Empty list means all clients are allowed.
	AllowedIPs []string `mapstructure:"allowed_ips" validate:"dive,ip"`

	// BufferSize is the pooled read buffer size in bytes
	BufferSize int `mapstructure:"buffer_size" validate:"min=64"`

	// MaxCommandLength is the longest accepted command in bytes.
	// Longer input is dropped with a warning, never queued.
	MaxCommandLength int `mapstructure:"max_command_length" validate:"min=1"`

	// ReadThrottle is the minimum delay between successive socket reads
	// on one connection. Bounds worst-case ingestion from a single client.
	ReadThrottle time.Duration `mapstructure:"read_throttle" validate:"min=0"`

	// CommandThrottle is the minimum delay between successive commands
	// accepted from one connection
	CommandThrottle time.Duration `mapstructure:"command_throttle" validate:"min=0"`

	// MaxCommandsPerSecond caps sustained command ingestion across all
	// connections combined. Commands above the cap are dropped with a
	// warning. Zero disables the cap.
	MaxCommandsPerSecond int `mapstructure:"max_commands_per_second" validate:"min=0"`

	// IdleTimeout is how long a connection may stay inactive before the
	// cleanup sweep evicts it
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"required,gt=0"`

	// CleanupInterval is how often the idle-connection sweep runs
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"required,gt=0"`

	// QueueSize bounds the shared command queue
	QueueSize int `mapstructure:"queue_size" validate:"min=1"`

	// ShutdownTimeout is the maximum time to wait for reader goroutines
	// to exit during Stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// ConsoleConfig contains dispatcher settings.
type ConsoleConfig struct {
	// HistorySize bounds the command history; oldest entries are evicted
	HistorySize int `mapstructure:"history_size" validate:"min=1"`

	// MaxCommandsPerTick bounds how many queued commands one dispatcher
	// tick drains, limiting per-tick latency impact on the host
	MaxCommandsPerTick int `mapstructure:"max_commands_per_tick" validate:"min=1"`

	// SlowCommandThreshold is the handling-time ceiling above which a
	// command is logged as slow (it still succeeds)
	SlowCommandThreshold time.Duration `mapstructure:"slow_command_threshold" validate:"min=0"`

	// EventBuffer bounds the outward event channel
	EventBuffer int `mapstructure:"event_buffer" validate:"min=1"`

	// StatsWindow is the rolling window for throughput accounting
	StatsWindow time.Duration `mapstructure:"stats_window" validate:"min=0"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the /metrics HTTP server
	Enabled bool `mapstructure:"enabled"`

	// Port is the HTTP port for the metrics server
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns the loaded and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and config file search.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the REMCON_ prefix and underscores
	// Example: REMCON_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("REMCON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is acceptable; defaults apply.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "remcon")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "remcon")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
