package config

import "github.com/attacklog/attacklog/internal/analytics"

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8090
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

	// Database defaults
	cfg.Database.Path = "attacklog.db"

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.AppLogPath = "logs/app.log"
	cfg.Logging.AuditLogPath = "logs/audit.log"
	cfg.Logging.MaxSizeMB = 50
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 90
	cfg.Logging.Compress = true

	// Analytics defaults
	cfg.Analytics.FrequencyWindowDays = analytics.DefaultFrequencyWindowDays
	cfg.Analytics.HeatmapWindowDays = analytics.DefaultHeatmapWindowDays
	cfg.Analytics.TopTagsLimit = analytics.DefaultTopTagsLimit

	return cfg
}
