package config

import (
	"github.com/flexprice/billing/internal/types"
)

// EventConfig holds configuration for ledger event publishing
type EventConfig struct {
	PublishDestination types.PubSubType `mapstructure:"publish_destination" validate:"required,oneof=memory kafka"`
	Topic              string           `mapstructure:"topic" validate:"required"`
}
