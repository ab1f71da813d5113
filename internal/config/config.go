// Package config loads process configuration from the environment.
//
// Loading order: a .env file (if present, never overriding the real
// environment), then envconfig tags, then validator rules.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrorType classifies a ConfigError.
type ErrorType string

const (
	ErrParsing    ErrorType = "parsing"
	ErrValidation ErrorType = "validation"
)

// ConfigError is returned by Load.
type ConfigError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config is the full process configuration.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	HealthPort  int    `envconfig:"HEALTH_PORT" default:"8081" validate:"min=1,max=65535"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`

	Database  DatabaseConfig
	Weather   WeatherConfig
	Message   MessageConfig
	Email     EmailConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
	Auth      AuthConfig
	PubSub    PubSubConfig
}

// DatabaseConfig selects the alert store. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL"`
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2" validate:"min=0"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// WeatherConfig configures the weather provider.
type WeatherConfig struct {
	APIKey   string        `envconfig:"TOMORROW_API_KEY"`
	BaseURL  string        `envconfig:"TOMORROW_API_URL" default:"https://api.tomorrow.io/v4" validate:"url"`
	UseMock  bool          `envconfig:"USE_MOCK_WEATHER" default:"false"`
	CacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"2m"`
}

// MessageConfig configures message generation.
type MessageConfig struct {
	// Strategy is openai, huggingface, template or auto.
	Strategy            string `envconfig:"MESSAGE_STRATEGY" default:"auto" validate:"oneof=auto openai huggingface template"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel         string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" validate:"url"`
	HuggingFaceToken    string `envconfig:"HUGGINGFACE_TOKEN"`
	HuggingFaceSpaceURL string `envconfig:"HUGGINGFACE_SPACE_URL" validate:"omitempty,url"`
	UseFreeModel        bool   `envconfig:"USE_FREE_MODEL" default:"false"`
}

// ResolvedStrategy turns auto into a concrete strategy.
func (m MessageConfig) ResolvedStrategy() string {
	if m.Strategy != "auto" {
		return m.Strategy
	}
	switch {
	case m.UseFreeModel:
		return "huggingface"
	case m.OpenAIAPIKey != "":
		return "openai"
	default:
		return "template"
	}
}

// EmailConfig configures the email transport.
type EmailConfig struct {
	Transport string `envconfig:"EMAIL_TRANSPORT" default:"log" validate:"oneof=log smtp ses"`
	From      string `envconfig:"EMAIL_FROM" default:"alerts@yourdomain.com" validate:"email"`
	SMTPHost  string `envconfig:"SMTP_HOST" validate:"required_if=Transport smtp"`
	SMTPPort  int    `envconfig:"SMTP_PORT" default:"587" validate:"min=1,max=65535"`
	SMTPUser  string `envconfig:"SMTP_USER"`
	SMTPPass  string `envconfig:"SMTP_PASS"`
	AWSRegion string `envconfig:"AWS_REGION"`
}

// KafkaConfig enables the event channel when Brokers is set.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"alert-triggered"`
}

// SchedulerConfig configures periodic sweeps.
type SchedulerConfig struct {
	Enabled     bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
	Interval    time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"10m" validate:"min=1000000000"`
	Concurrency int           `envconfig:"SWEEP_CONCURRENCY" default:"8" validate:"min=1,max=256"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	LockTTL     time.Duration `envconfig:"SWEEP_LOCK_TTL" default:"5m"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
}

// AuthConfig protects operator endpoints when Secret is set.
type AuthConfig struct {
	Secret   string `envconfig:"JWT_SECRET" validate:"omitempty,min=32"`
	Issuer   string `envconfig:"JWT_ISSUER" default:"alertrix"`
	Audience string `envconfig:"JWT_AUDIENCE" default:"alertrix-ops"`
}

// PubSubConfig lets the worker receive sweep jobs.
type PubSubConfig struct {
	ProjectID    string `envconfig:"PUBSUB_PROJECT_ID"`
	Subscription string `envconfig:"PUBSUB_SUBSCRIPTION" validate:"required_with=ProjectID"`
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load()
}

func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}

	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}
	if err := cfg.check(); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}

	return &cfg, nil
}

// check covers rules that span sections.
func (c *Config) check() error {
	var errs []error
	switch c.Message.ResolvedStrategy() {
	case "openai":
		if c.Message.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("MESSAGE_STRATEGY=openai requires OPENAI_API_KEY"))
		}
	}
	if !c.Weather.UseMock && c.Weather.APIKey == "" {
		errs = append(errs, errors.New("TOMORROW_API_KEY is required unless USE_MOCK_WEATHER=true"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
