package config

import "context"

// Package config provides configuration management for attacklog.
//
// Configuration sources (priority order, high to low):
//  1. Environment variables (ATTACKLOG_* prefix)
//  2. YAML config file (optional)
//  3. Built-in defaults
//
// Main configuration sections:
//
//  1. Server
//     - host, port: HTTP listen address
//     - allowed_origins: CORS origins permitted to call the API
//
//  2. Database
//     - path: SQLite file path (":memory:" for ephemeral state)
//
//  3. Logging
//     - level: "debug" | "info" | "warn" | "error"
//     - app_log_path, audit_log_path: rotated JSON log files
//     - max_size_mb, max_backups, max_age_days, compress: rotation policy
//
//  4. Analytics
//     - frequency_window_days: default frequency series window
//     - heatmap_window_days: default severity heatmap window
//     - top_tags_limit: default ranking size

// Config contains all configuration fields.
type Config struct {
	Server struct {
		Host string
		Port int
		// AllowedOrigins lists origins permitted to call the API from a
		// browser. Use ["*"] to allow any origin (development only).
		AllowedOrigins []string
	}

	Database struct {
		Path string
	}

	Logging struct {
		Level        string
		AppLogPath   string
		AuditLogPath string
		MaxSizeMB    int
		MaxBackups   int
		MaxAgeDays   int
		Compress     bool
	}

	Analytics struct {
		FrequencyWindowDays int
		HeatmapWindowDays   int
		TopTagsLimit        int
	}
}

// Manager loads, validates, and watches configuration.
type Manager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches the config file for changes and emits reloaded configs.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewManager creates a config manager reading the given YAML file (which
// may be absent; defaults and environment variables still apply).
func NewManager(configPath string) (Manager, error) {
	mgr := &viperManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}
