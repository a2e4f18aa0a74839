package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/billing/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment  DeploymentConfig `validate:"required"`
	Server      ServerConfig     `validate:"required"`
	Logging     LoggingConfig    `validate:"required"`
	Postgres    PostgresConfig   `validate:"required"`
	Ledger      LedgerConfig     `validate:"required"`
	Event       EventConfig      `validate:"required"`
	Audit       AuditConfig
	Kafka       KafkaConfig
	Sentry      SentryConfig
	Pyroscope   PyroscopeConfig
	Idempotency IdempotencyConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	LockTimeoutMs          int    `mapstructure:"lock_timeout_ms" validate:"gte=0" default:"5000"`
}

// LedgerConfig holds the knobs of the invoice and payment ledgers
type LedgerConfig struct {
	InvoicePrefix      string                  `mapstructure:"invoice_prefix" validate:"required"`
	PaymentPrefix      string                  `mapstructure:"payment_prefix" validate:"required"`
	SequenceMaxRetries int                     `mapstructure:"sequence_max_retries" validate:"gte=1"`
	OverpaymentPolicy  types.OverpaymentPolicy `mapstructure:"overpayment_policy" validate:"required,oneof=credit reject"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	TLS           bool     `mapstructure:"tls"`
	UseSASL       bool     `mapstructure:"use_sasl"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	SASLUser      string   `mapstructure:"sasl_user"`
	SASLPassword  string   `mapstructure:"sasl_password"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional and only fills variables that are not already set
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/billing")

	v.SetEnvPrefix("BILLING")
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
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.lock_timeout_ms", 5000)
	v.SetDefault("ledger.invoice_prefix", "INV")
	v.SetDefault("ledger.payment_prefix", "PAY")
	v.SetDefault("ledger.sequence_max_retries", 5)
	v.SetDefault("ledger.overpayment_policy", types.OverpaymentPolicyCredit)
	v.SetDefault("event.publish_destination", types.MemoryPubSub)
	v.SetDefault("event.topic", "ledger_events")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.consumer_name", "ledger_audit")
	v.SetDefault("audit.max_retries", 3)
	v.SetDefault("audit.initial_interval", "1s")
	v.SetDefault("audit.max_interval", "10s")
	v.SetDefault("audit.multiplier", 2.0)
	v.SetDefault("audit.max_elapsed_time", "1m")
	v.SetDefault("kafka.client_id", "billing")
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("pyroscope.application_name", "billing")
	v.SetDefault("pyroscope.sample_rate", 100)
	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", "24h")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 60,
			LockTimeoutMs:          5000,
		},
		Ledger: LedgerConfig{
			InvoicePrefix:      "INV",
			PaymentPrefix:      "PAY",
			SequenceMaxRetries: 5,
			OverpaymentPolicy:  types.OverpaymentPolicyCredit,
		},
		Event: EventConfig{
			PublishDestination: types.MemoryPubSub,
			Topic:              "ledger_events",
		},
		Audit: AuditConfig{
			ConsumerName:    "ledger_audit",
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			MaxElapsedTime:  time.Minute,
		},
		Kafka:       KafkaConfig{ClientID: "billing"},
		Pyroscope:   PyroscopeConfig{ApplicationName: "billing", SampleRate: 100},
		Idempotency: IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour},
	}
}

func (c PostgresConfig) GetDSN() string {
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
