package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/facturo/facturo/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Sequence   SequenceConfig   `validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Event      EventConfig      `mapstructure:"events"`
	Kafka      KafkaConfig
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Driver                 types.DatabaseDriver `mapstructure:"driver" validate:"omitempty,oneof=postgres pgx sqlite3"`
	Host                   string               `mapstructure:"host"`
	Port                   int                  `mapstructure:"port"`
	User                   string               `mapstructure:"user"`
	Password               string               `mapstructure:"password"`
	DBName                 string               `mapstructure:"dbname"`
	SSLMode                string               `mapstructure:"sslmode"`
	MaxOpenConns           int                  `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int                  `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int                  `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	AutoMigrate            bool                 `mapstructure:"auto_migrate"`
	// DSN overrides the host based connection string when set. sqlite3 only
	// reads this field.
	DSN string `mapstructure:"dsn"`
}

// SequenceConfig bounds the compare-and-set retry loop used to allocate
// fiscal numbers
type SequenceConfig struct {
	MaxAllocationAttempts int           `mapstructure:"max_allocation_attempts" validate:"min=1,max=20"`
	RetryInitialInterval  time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval      time.Duration `mapstructure:"retry_max_interval"`
}

// SentryConfig enables reporting of server side failures
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

func NewConfig() (*Configuration, error) {
	// a missing .env is fine, the variables may come from the environment
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/facturo")

	v.SetEnvPrefix("FACTURO")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.driver", types.DatabaseDriverPostgres)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("sequence.max_allocation_attempts", 5)
	v.SetDefault("sequence.retry_initial_interval", 5*time.Millisecond)
	v.SetDefault("sequence.retry_max_interval", 100*time.Millisecond)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.publish_destination", types.EventDestinationMemory)
	v.SetDefault("events.topic", "fiscal_events")
	v.SetDefault("kafka.client_id", "facturo")
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.environment", "local")
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Event.Enabled && c.Event.PublishDestination == types.EventDestinationKafka && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when events are published to kafka")
	}
	if c.Sentry.Enabled && c.Sentry.DSN == "" {
		return errors.New("sentry.dsn is required when sentry is enabled")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Driver:      types.DatabaseDriverSQLite,
			DSN:         "file::memory:?cache=shared",
			AutoMigrate: true,
		},
		Sequence: SequenceConfig{
			MaxAllocationAttempts: 5,
			RetryInitialInterval:  5 * time.Millisecond,
			RetryMaxInterval:      100 * time.Millisecond,
		},
		Cache: CacheConfig{Enabled: true, TTL: 5 * time.Minute},
		Event: EventConfig{
			Enabled:            true,
			PublishDestination: types.EventDestinationMemory,
			Topic:              "fiscal_events",
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
