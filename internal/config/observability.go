package config

import (
	"fmt"
)

// ObservabilityConfig groups configuration related to runtime visibility.
//
// The bootstrapper lives for a few seconds before it execs the server, so
// this is limited to logging.
type ObservabilityConfig struct {
	// ServiceName identifies this process in logs.
	ServiceName string `koanf:"service_name" validate:"required"`

	// Environment mirrors Primary.Env.
	Environment string `koanf:"environment" validate:"required"`

	// Logging config controls structured logger behavior.
	Logging LoggingConfig `koanf:"logging" validate:"required"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the verbosity threshold (debug/info/warn/error).
	Level string `koanf:"level"`

	// Format selects the output format: "json" or "console".
	Format string `koanf:"format" validate:"required,oneof=json console"`

	// TraceSQL logs every statement the bootstrapper sends. It is always on
	// in the "local" environment.
	TraceSQL bool `koanf:"trace_sql"`
}

// DefaultObservabilityConfig provides the defaults used when nothing is set.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		ServiceName: "foodgram-entrypoint",
		Environment: "production",
		Logging: LoggingConfig{
			Level:  "",
			Format: "json",
		},
	}
}

// Validate applies rules that go beyond struct tags.
func (c *ObservabilityConfig) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}

	validLevels := map[string]bool{
		"":      true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %s (must be json or console)", c.Logging.Format)
	}

	return nil
}

// GetLogLevel returns the effective log level.
//
// An explicit level always wins. Otherwise production defaults to info and
// every other environment to debug.
func (c *ObservabilityConfig) GetLogLevel() string {
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	if c.IsProduction() {
		return "info"
	}
	return "debug"
}

// IsProduction reports whether the container runs in production mode.
func (c *ObservabilityConfig) IsProduction() bool {
	return c.Environment == "production"
}

// TraceSQL reports whether SQL statements should be logged.
func (c *ObservabilityConfig) TraceSQL() bool {
	return c.Logging.TraceSQL || c.Environment == "local"
}
