package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyConsoleDefaults(&cfg.Console)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 4050
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 8
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 4096
	}
	if cfg.MaxCommandLength == 0 {
		cfg.MaxCommandLength = 4096
	}
	if cfg.ReadThrottle == 0 {
		cfg.ReadThrottle = 10 * time.Millisecond
	}
	if cfg.CommandThrottle == 0 {
		cfg.CommandThrottle = 50 * time.Millisecond
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 30 * time.Second
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 256
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyConsoleDefaults(cfg *ConsoleConfig) {
	if cfg.HistorySize == 0 {
		cfg.HistorySize = 100
	}
	if cfg.MaxCommandsPerTick == 0 {
		cfg.MaxCommandsPerTick = 16
	}
	if cfg.SlowCommandThreshold == 0 {
		cfg.SlowCommandThreshold = 100 * time.Millisecond
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = 128
	}
	if cfg.StatsWindow == 0 {
		cfg.StatsWindow = time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	// Enabled defaults to false
}
