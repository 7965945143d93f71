package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Manager handles loading configuration from defaults, files and the environment.
type Manager struct {
	config *Config
}

// NewManager creates a new configuration manager with default configuration.
func NewManager() *Manager {
	return &Manager{
		config: defaultConfig(),
	}
}

// defaultConfig returns a configuration that runs locally with no file.
func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Environments: map[string]ProfileConfig{
			"development": {Type: "sqlite", Path: "armory.db", AutoCreate: true},
			"test":        {Type: "sqlite", Path: ":memory:", AutoCreate: true},
		},
		Database: DatabaseConfig{
			QueryTimeout:      5 * time.Second,
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		Events: EventsConfig{
			Type:            "none",
			QueueSize:       10000,
			DeliveryRate:    100,
			MaxRetries:      3,
			RetryBackoff:    500 * time.Millisecond,
			DeliveryTimeout: 5 * time.Second,
			Redis: RedisEventsConfig{
				Endpoints: []string{"localhost:6379"},
				KeyPrefix: "armory:events",
			},
			Kafka: KafkaEventsConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "armory-changes",
				RequiredAcks: -1, // All replicas
				BatchTimeout: 10 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
// The file format is determined by the file extension (.yaml, .yml, or .json).
func (m *Manager) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return m.LoadFromYAML(data)
	case ".json":
		return m.LoadFromJSON(data)
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadFromYAML loads configuration from YAML data on top of the defaults.
func (m *Manager) LoadFromYAML(data []byte) error {
	config := defaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.config = config
	return nil
}

// LoadFromJSON loads configuration from JSON data on top of the defaults.
// Durations are given in nanoseconds.
func (m *Manager) LoadFromJSON(data []byte) error {
	config := defaultConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.config = config
	return nil
}

// ApplyEnv overlays environment variables on the loaded configuration.
// Variables follow the pattern ARMORY_<SECTION>_<KEY>; PORT is honored as
// well and wins over ARMORY_SERVER_PORT. Examples:
//   - ARMORY_ENV=production
//   - PORT=9000
//   - ARMORY_DB_DSN=armory:secret@tcp(db:3306)/armory
//   - ARMORY_DATABASE_QUERY_TIMEOUT=2s
//   - ARMORY_EVENTS_TYPE=kafka
//
// A numeric or duration variable that does not parse is an error.
func (m *Manager) ApplyEnv() error {
	config := *m.config
	config.Environments = make(map[string]ProfileConfig, len(m.config.Environments))
	for name, profile := range m.config.Environments {
		config.Environments[name] = profile
	}

	if val := os.Getenv("ARMORY_ENV"); val != "" {
		config.Environment = val
	}

	// Server configuration
	if err := envInt("ARMORY_SERVER_PORT", &config.Server.Port); err != nil {
		return err
	}
	if err := envInt("PORT", &config.Server.Port); err != nil {
		return err
	}
	if err := envDuration("ARMORY_SERVER_SHUTDOWN_TIMEOUT", &config.Server.ShutdownTimeout); err != nil {
		return err
	}

	// Active profile connection overrides
	if profile, ok := config.Environments[config.Environment]; ok {
		if val := os.Getenv("ARMORY_DB_DSN"); val != "" {
			profile.DSN = val
		}
		if val := os.Getenv("ARMORY_DB_HOST"); val != "" {
			profile.Host = val
		}
		if err := envInt("ARMORY_DB_PORT", &profile.Port); err != nil {
			return err
		}
		if val := os.Getenv("ARMORY_DB_NAME"); val != "" {
			profile.Database = val
		}
		if val := os.Getenv("ARMORY_DB_USERNAME"); val != "" {
			profile.Username = val
		}
		if val := os.Getenv("ARMORY_DB_PASSWORD"); val != "" {
			profile.Password = val
		}
		config.Environments[config.Environment] = profile
	}

	// Database pool configuration
	if err := envDuration("ARMORY_DATABASE_QUERY_TIMEOUT", &config.Database.QueryTimeout); err != nil {
		return err
	}
	if err := envInt("ARMORY_DATABASE_MAX_OPEN_CONNS", &config.Database.MaxOpenConns); err != nil {
		return err
	}
	if err := envInt("ARMORY_DATABASE_MAX_IDLE_CONNS", &config.Database.MaxIdleConns); err != nil {
		return err
	}

	// Rate limit configuration
	if err := envFloat("ARMORY_RATE_LIMIT_RPS", &config.RateLimit.RequestsPerSecond); err != nil {
		return err
	}
	if err := envInt("ARMORY_RATE_LIMIT_BURST", &config.RateLimit.Burst); err != nil {
		return err
	}

	// Events configuration
	if val := os.Getenv("ARMORY_EVENTS_TYPE"); val != "" {
		config.Events.Type = val
	}
	if val := os.Getenv("ARMORY_EVENTS_REDIS_ENDPOINTS"); val != "" {
		config.Events.Redis.Endpoints = strings.Split(val, ",")
	}
	if val := os.Getenv("ARMORY_EVENTS_KAFKA_BROKERS"); val != "" {
		config.Events.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("ARMORY_EVENTS_KAFKA_TOPIC"); val != "" {
		config.Events.Kafka.Topic = val
	}
	if val := os.Getenv("ARMORY_EVENTS_DYNAMODB_TABLE"); val != "" {
		config.Events.DynamoDB.TableName = val
	}
	if val := os.Getenv("ARMORY_EVENTS_DYNAMODB_REGION"); val != "" {
		config.Events.DynamoDB.Region = val
	}

	// Logging configuration
	if val := os.Getenv("ARMORY_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("ARMORY_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}

	if err := validateConfig(&config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.config = &config
	return nil
}

// envInt overlays an integer environment variable. Unset leaves target alone.
func envInt(key string, target *int) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fmt.Errorf("invalid %s %q: expected an integer", key, val)
	}
	*target = n
	return nil
}

func envFloat(key string, target *float64) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: expected a number", key, val)
	}
	*target = f
	return nil
}

func envDuration(key string, target *time.Duration) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return fmt.Errorf("invalid %s %q: expected a duration such as 2s", key, val)
	}
	*target = d
	return nil
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Load builds a configuration from the defaults, an optional file and the
// environment, in that order.
func Load(filePath string) (*Config, error) {
	manager := NewManager()
	if filePath != "" {
		if err := manager.LoadFromFile(filePath); err != nil {
			return nil, err
		}
	}
	if err := manager.ApplyEnv(); err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}

// validateConfig validates the configuration and returns an error if invalid.
func validateConfig(config *Config) error {
	if config.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	profile, ok := config.ActiveProfile()
	if !ok {
		return fmt.Errorf("environment %q has no entry in environments", config.Environment)
	}
	if err := validateProfile(config.Environment, profile); err != nil {
		return err
	}

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if config.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be non-negative")
	}
	if config.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must be non-negative")
	}

	// Validate database configuration
	if config.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database.query_timeout must be greater than 0")
	}
	if config.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be greater than 0")
	}
	if config.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns must be non-negative")
	}

	// Validate rate limit configuration
	if config.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be non-negative")
	}
	if config.RateLimit.RequestsPerSecond > 0 && config.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be greater than 0 when rate limiting is enabled")
	}

	// Validate events configuration
	switch config.Events.Type {
	case "", "none", "log":
	case "redis":
		if len(config.Events.Redis.Endpoints) == 0 {
			return fmt.Errorf("events.redis.endpoints is required when events.type is 'redis'")
		}
	case "kafka":
		if len(config.Events.Kafka.Brokers) == 0 {
			return fmt.Errorf("events.kafka.brokers is required when events.type is 'kafka'")
		}
		if config.Events.Kafka.Topic == "" {
			return fmt.Errorf("events.kafka.topic is required when events.type is 'kafka'")
		}
	case "dynamodb":
		if config.Events.DynamoDB.Region == "" {
			return fmt.Errorf("events.dynamodb.region is required when events.type is 'dynamodb'")
		}
		if config.Events.DynamoDB.TableName == "" {
			return fmt.Errorf("events.dynamodb.table_name is required when events.type is 'dynamodb'")
		}
	default:
		return fmt.Errorf("events.type must be 'none', 'log', 'redis', 'kafka' or 'dynamodb'")
	}
	if config.Events.MaxRetries < 0 {
		return fmt.Errorf("events.max_retries must be non-negative")
	}

	// Validate logging configuration
	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error'")
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	return nil
}

func validateProfile(name string, profile ProfileConfig) error {
	switch profile.Type {
	case "sqlite":
		if profile.DSN == "" && profile.Path == "" {
			return fmt.Errorf("environments.%s.path is required for sqlite", name)
		}
	case "mysql":
		if profile.DSN != "" {
			return nil
		}
		if profile.Host == "" {
			return fmt.Errorf("environments.%s.host is required", name)
		}
		if profile.Port < 0 || profile.Port > 65535 {
			return fmt.Errorf("environments.%s.port must be between 1 and 65535", name)
		}
		if profile.Database == "" {
			return fmt.Errorf("environments.%s.database is required", name)
		}
		if profile.Username == "" {
			return fmt.Errorf("environments.%s.username is required", name)
		}
	case "":
		return fmt.Errorf("environments.%s.type is required", name)
	default:
		return fmt.Errorf("environments.%s.type must be 'sqlite' or 'mysql'", name)
	}
	return nil
}
