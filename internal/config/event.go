package config

import (
	"github.com/facturo/facturo/internal/types"
)

// EventConfig holds configuration for audit event publishing
type EventConfig struct {
	Enabled            bool                   `mapstructure:"enabled"`
	PublishDestination types.EventDestination `mapstructure:"publish_destination" validate:"omitempty,oneof=memory kafka"`
	Topic              string                 `mapstructure:"topic"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	TLS           bool     `mapstructure:"tls"`
	UseSASL       bool     `mapstructure:"use_sasl"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	SASLUser      string   `mapstructure:"sasl_user"`
	SASLPassword  string   `mapstructure:"sasl_password"`
}
