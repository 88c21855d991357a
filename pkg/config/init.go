package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a commented default configuration file to the default
// location and returns its path.
//
// Fails if the file already exists unless force is true.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return "", fmt.Errorf("config file already exists at %s (use force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := renderDefaultConfig()
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}

// renderDefaultConfig produces the default configuration as commented YAML.
// Sections are emitted in a fixed order with explanatory headers.
func renderDefaultConfig() ([]byte, error) {
	var cfg Config
	ApplyDefaults(&cfg)

	var buf bytes.Buffer
	buf.WriteString("# remcon Configuration File\n")
	buf.WriteString("# Values shown are the defaults. Environment variables (REMCON_*) override.\n\n")

	sections := []struct {
		comment string
		value   map[string]any
	}{
		{
			comment: "# Log level (DEBUG, INFO, WARN, ERROR) and output (stdout, stderr, file path)",
			value: map[string]any{"logging": map[string]any{
				"level":  cfg.Logging.Level,
				"output": cfg.Logging.Output,
			}},
		},
		{
			comment: "# TCP listener and per-connection policy",
			value: map[string]any{"server": map[string]any{
				"port":                    cfg.Server.Port,
				"max_connections":         cfg.Server.MaxConnections,
				"allowed_ips":             []string{},
				"buffer_size":             cfg.Server.BufferSize,
				"max_command_length":      cfg.Server.MaxCommandLength,
				"read_throttle":           cfg.Server.ReadThrottle.String(),
				"command_throttle":        cfg.Server.CommandThrottle.String(),
				"max_commands_per_second": cfg.Server.MaxCommandsPerSecond,
				"idle_timeout":            cfg.Server.IdleTimeout.String(),
				"cleanup_interval":        cfg.Server.CleanupInterval.String(),
				"queue_size":              cfg.Server.QueueSize,
				"shutdown_timeout":        cfg.Server.ShutdownTimeout.String(),
			}},
		},
		{
			comment: "# Dispatcher behavior",
			value: map[string]any{"console": map[string]any{
				"history_size":           cfg.Console.HistorySize,
				"max_commands_per_tick":  cfg.Console.MaxCommandsPerTick,
				"slow_command_threshold": cfg.Console.SlowCommandThreshold.String(),
				"event_buffer":           cfg.Console.EventBuffer,
				"stats_window":           cfg.Console.StatsWindow.String(),
			}},
		},
		{
			comment: "# Prometheus metrics",
			value: map[string]any{"metrics": map[string]any{
				"enabled": cfg.Metrics.Enabled,
				"port":    cfg.Metrics.Port,
			}},
		},
	}

	for _, section := range sections {
		buf.WriteString(section.comment)
		buf.WriteByte('\n')

		out, err := yaml.Marshal(section.value)
		if err != nil {
			return nil, fmt.Errorf("failed to render default config: %w", err)
		}
		buf.Write(out)
		buf.WriteByte('\n')
	}

	buf.WriteString("# Command bindings for dynamic dispatch, e.g.:\n")
	buf.WriteString("# bindings:\n")
	buf.WriteString("#   - command: attack\n")
	buf.WriteString("#     target: player\n")
	buf.WriteString("#     signature: \"Attack(int)\"\n")

	return buf.Bytes(), nil
}
