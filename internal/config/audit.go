package config

import "time"

// AuditConfig controls the consumer that re-verifies customer ledgers after each ledger event
type AuditConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ConsumerName    string        `mapstructure:"consumer_name"`
	MaxRetries      int           `mapstructure:"max_retries" validate:"gte=0"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}
