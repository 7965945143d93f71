package config

import (
	"time"
)

// Config represents the root configuration of the service.
type Config struct {
	// Environment selects the active entry of Environments.
	Environment string `yaml:"environment" json:"environment"`

	// Server contains HTTP listener settings.
	Server ServerConfig `yaml:"server" json:"server"`

	// Environments holds one database connection profile per named environment.
	Environments map[string]ProfileConfig `yaml:"environments" json:"environments"`

	// Database contains pool and timeout settings shared by every profile.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// RateLimit contains the global HTTP rate limit.
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Events configures change event delivery.
	Events EventsConfig `yaml:"events" json:"events"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
	IdleTimeout     time.Duration `yaml:"idle_timeout,omitempty" json:"idle_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`

	// MaxBodyBytes caps the size of request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes,omitempty" json:"max_body_bytes,omitempty"`
}

// ProfileConfig is a database connection profile.
type ProfileConfig struct {
	// Type is the database driver: "sqlite" or "mysql".
	Type string `yaml:"type" json:"type"`

	// DSN overrides every other connection field when set.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// Path is the SQLite database file, or ":memory:".
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// AutoCreate creates missing resource tables at startup.
	AutoCreate bool `yaml:"auto_create,omitempty" json:"auto_create,omitempty"`
}

// DatabaseConfig contains pool and timeout settings.
type DatabaseConfig struct {
	// QueryTimeout bounds every gateway call.
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`

	MaxOpenConns      int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns      int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// RateLimitConfig contains the global token bucket. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// EventsConfig configures change event delivery.
type EventsConfig struct {
	// Type is the sink: "none", "log", "redis", "kafka" or "dynamodb".
	Type string `yaml:"type" json:"type"`

	QueueSize       int           `yaml:"queue_size,omitempty" json:"queue_size,omitempty"`
	DeliveryRate    int           `yaml:"delivery_rate,omitempty" json:"delivery_rate,omitempty"`
	MaxRetries      int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryBackoff    time.Duration `yaml:"retry_backoff,omitempty" json:"retry_backoff,omitempty"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout,omitempty" json:"delivery_timeout,omitempty"`

	Redis    RedisEventsConfig    `yaml:"redis,omitempty" json:"redis,omitempty"`
	Kafka    KafkaEventsConfig    `yaml:"kafka,omitempty" json:"kafka,omitempty"`
	DynamoDB DynamoDBEventsConfig `yaml:"dynamodb,omitempty" json:"dynamodb,omitempty"`
}

// RedisEventsConfig contains Redis sink configuration.
type RedisEventsConfig struct {
	Endpoints   []string      `yaml:"endpoints" json:"endpoints"`
	Password    string        `yaml:"password,omitempty" json:"password,omitempty"`
	DB          int           `yaml:"db,omitempty" json:"db,omitempty"`
	KeyPrefix   string        `yaml:"key_prefix,omitempty" json:"key_prefix,omitempty"`
	MaxLen      int64         `yaml:"max_len,omitempty" json:"max_len,omitempty"`
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
}

// KafkaEventsConfig contains Kafka sink configuration.
type KafkaEventsConfig struct {
	Brokers      []string      `yaml:"brokers" json:"brokers"`
	Topic        string        `yaml:"topic" json:"topic"`
	RequiredAcks int           `yaml:"required_acks,omitempty" json:"required_acks,omitempty"`
	BatchTimeout time.Duration `yaml:"batch_timeout,omitempty" json:"batch_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// DynamoDBEventsConfig contains DynamoDB sink configuration.
type DynamoDBEventsConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `yaml:"level" json:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format" json:"format"`
}

// ActiveProfile returns the profile selected by Environment.
func (c *Config) ActiveProfile() (ProfileConfig, bool) {
	profile, ok := c.Environments[c.Environment]
	return profile, ok
}
