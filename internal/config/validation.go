package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	if c.Database.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.path",
			Message: "database path must not be empty",
		})
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown log level %q", c.Logging.Level),
		})
	}

	if c.Analytics.FrequencyWindowDays < 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.frequency_window_days",
			Message: "window must be at least 1 day",
		})
	}
	if c.Analytics.HeatmapWindowDays < 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.heatmap_window_days",
			Message: "window must be at least 1 day",
		})
	}
	if c.Analytics.TopTagsLimit < 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.top_tags_limit",
			Message: "limit must be at least 1",
		})
	}

	return errs
}
