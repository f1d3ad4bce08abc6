package config

import "time"

// OracleConfig holds the warehouse graph database settings. GraphID is the
// default graph used when an order does not name one; leaving it unset means
// every oracle call must carry an explicit graph.
type OracleConfig struct {
	DSN     string        `mapstructure:"dsn" validate:"required"`
	GraphID *int          `mapstructure:"graph_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}
