package config

import "time"

// ServerConfig holds the HTTP API listener settings. PIDFile, when set,
// enforces a single daemon instance per host.
type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	PIDFile         string        `mapstructure:"pid_file"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
