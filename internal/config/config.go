// Package config loads daemon settings from an HCL file, with environment
// variable and default fallbacks. Precedence is flag > env > file > default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the daemon's full runtime configuration.
type Config struct {
	Interfaces        []string `hcl:"interfaces,optional"`
	WebPort           int      `hcl:"web_port,optional"`
	DatabasePath      string   `hcl:"database_path,optional"`
	DataRetentionDays int      `hcl:"data_retention_days,optional"`
	ChannelBufferSize int      `hcl:"channel_buffer_size,optional"`
	OUISnapshotPath   string   `hcl:"oui_snapshot_path,optional"`

	CleanupIntervalSeconds  int `hcl:"cleanup_interval_seconds,optional"`
	ActiveThresholdSeconds  int `hcl:"active_threshold_seconds,optional"`
	AutoScanIntervalMinutes int `hcl:"auto_scan_interval_minutes,optional"`
}

// Default returns the baseline configuration used when no file or env
// override is present.
func Default() Config {
	return Config{
		Interfaces:              nil, // empty means auto-detect all monitorable interfaces
		WebPort:                 8080,
		DatabasePath:            "netwatch.db",
		DataRetentionDays:       7,
		ChannelBufferSize:       10_000_000,
		CleanupIntervalSeconds:  30,
		ActiveThresholdSeconds:  300,
		AutoScanIntervalMinutes: 0, // 0 disables the automatic recurring scan
	}
}

// Load builds a Config starting from Default, layering in the HCL file at
// path (if non-empty and present), then environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MONITOR_INTERFACES"); v != "" {
		cfg.Interfaces = strings.Split(v, ",")
	}
	if v := os.Getenv("WEB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WebPort = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("DATA_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataRetentionDays = n
		}
	}
	if v := os.Getenv("CHANNEL_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChannelBufferSize = n
		}
	}
}

// PathFromEnv resolves the config file path, defaulting to the
// NETWATCH_CONFIG environment variable when the CLI flag is unset.
func PathFromEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("NETWATCH_CONFIG")
}
