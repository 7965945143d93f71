package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"ARMORY_ENV", "PORT", "ARMORY_SERVER_PORT", "ARMORY_SERVER_SHUTDOWN_TIMEOUT",
	"ARMORY_DB_DSN", "ARMORY_DB_HOST", "ARMORY_DB_PORT", "ARMORY_DB_NAME",
	"ARMORY_DB_USERNAME", "ARMORY_DB_PASSWORD",
	"ARMORY_DATABASE_QUERY_TIMEOUT", "ARMORY_DATABASE_MAX_OPEN_CONNS", "ARMORY_DATABASE_MAX_IDLE_CONNS",
	"ARMORY_RATE_LIMIT_RPS", "ARMORY_RATE_LIMIT_BURST",
	"ARMORY_EVENTS_TYPE", "ARMORY_EVENTS_REDIS_ENDPOINTS", "ARMORY_EVENTS_KAFKA_BROKERS",
	"ARMORY_EVENTS_KAFKA_TOPIC", "ARMORY_EVENTS_DYNAMODB_TABLE", "ARMORY_EVENTS_DYNAMODB_REGION",
	"ARMORY_LOG_LEVEL", "ARMORY_LOG_FORMAT",
}

// clearEnv blanks every variable ApplyEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewManager().GetConfig()

	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "none", cfg.Events.Type)

	profile, ok := cfg.ActiveProfile()
	require.True(t, ok)
	assert.Equal(t, "sqlite", profile.Type)
	assert.True(t, profile.AutoCreate)
}

func TestLoadFromYAML(t *testing.T) {
	m := NewManager()
	err := m.LoadFromYAML([]byte(`
environment: production
server:
  port: 9000
  shutdown_timeout: 30s
environments:
  production:
    type: mysql
    host: db.internal
    database: armory
    username: armory
database:
  query_timeout: 2s
  max_open_conns: 50
events:
  type: kafka
  kafka:
    brokers: ["k1:9092", "k2:9092"]
    topic: sword-changes
logging:
  level: debug
  format: text
`))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	// Unset keys keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, "sword-changes", cfg.Events.Kafka.Topic)
	assert.Equal(t, "debug", cfg.Logging.Level)

	profile, ok := cfg.ActiveProfile()
	require.True(t, ok)
	assert.Equal(t, "db.internal", profile.Host)
}

func TestLoadFromJSON(t *testing.T) {
	m := NewManager()
	err := m.LoadFromJSON([]byte(`{
		"environment": "test",
		"server": {"port": 8181},
		"database": {"query_timeout": 2000000000, "max_open_conns": 4},
		"rate_limit": {"requests_per_second": 20, "burst": 40}
	}`))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, float64(20), cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "armory.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("server:\n  port: 7070\n"), 0o600))
	m := NewManager()
	require.NoError(t, m.LoadFromFile(yamlPath))
	assert.Equal(t, 7070, m.GetConfig().Server.Port)

	tomlPath := filepath.Join(dir, "armory.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("port = 1"), 0o600))
	err := NewManager().LoadFromFile(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file format")

	err = NewManager().LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestSampleConfigLoads(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.LoadFromFile(filepath.Join("..", "..", "config", "armory.yaml")))

	cfg := m.GetConfig()
	assert.Len(t, cfg.Environments, 3)
	assert.Equal(t, int64(10000), cfg.Events.Redis.MaxLen)
	assert.Equal(t, "armory-audit", cfg.Events.DynamoDB.TableName)
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARMORY_ENV", "test")
	t.Setenv("ARMORY_SERVER_PORT", "9000")
	t.Setenv("PORT", "9090")
	t.Setenv("ARMORY_DATABASE_QUERY_TIMEOUT", "750ms")
	t.Setenv("ARMORY_RATE_LIMIT_RPS", "12.5")
	t.Setenv("ARMORY_RATE_LIMIT_BURST", "25")
	t.Setenv("ARMORY_EVENTS_TYPE", "redis")
	t.Setenv("ARMORY_EVENTS_REDIS_ENDPOINTS", "r1:6379,r2:6379")
	t.Setenv("ARMORY_LOG_LEVEL", "warn")

	m := NewManager()
	require.NoError(t, m.ApplyEnv())

	cfg := m.GetConfig()
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port, "PORT wins over ARMORY_SERVER_PORT")
	assert.Equal(t, 750*time.Millisecond, cfg.Database.QueryTimeout)
	assert.Equal(t, 12.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 25, cfg.RateLimit.Burst)
	assert.Equal(t, "redis", cfg.Events.Type)
	assert.Equal(t, []string{"r1:6379", "r2:6379"}, cfg.Events.Redis.Endpoints)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnv_OverridesActiveProfileOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARMORY_DB_DSN", "file:other.db")

	m := NewManager()
	before := m.GetConfig()
	require.NoError(t, m.ApplyEnv())

	after := m.GetConfig()
	assert.Equal(t, "file:other.db", after.Environments["development"].DSN)
	assert.Empty(t, after.Environments["test"].DSN)
	// The previous configuration is left untouched.
	assert.Empty(t, before.Environments["development"].DSN)
}

func TestApplyEnv_InvalidResultIsRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARMORY_ENV", "staging")

	m := NewManager()
	err := m.ApplyEnv()
	assert.ErrorContains(t, err, `environment "staging" has no entry in environments`)
	assert.Equal(t, "development", m.GetConfig().Environment)
}

func TestApplyEnv_MalformedNumbersAreRejected(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr string
	}{
		{key: "PORT", value: "8080abc", wantErr: `invalid PORT "8080abc"`},
		{key: "PORT", value: "abc", wantErr: `invalid PORT "abc"`},
		{key: "ARMORY_SERVER_PORT", value: "80.5", wantErr: "expected an integer"},
		{key: "ARMORY_DB_PORT", value: "3306x", wantErr: "invalid ARMORY_DB_PORT"},
		{key: "ARMORY_DATABASE_MAX_OPEN_CONNS", value: "many", wantErr: "expected an integer"},
		{key: "ARMORY_RATE_LIMIT_RPS", value: "fast", wantErr: "expected a number"},
		{key: "ARMORY_DATABASE_QUERY_TIMEOUT", value: "5", wantErr: "expected a duration"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			m := NewManager()
			err := m.ApplyEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 8080, m.GetConfig().Server.Port)
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Environment)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing environment",
			mutate:  func(c *Config) { c.Environment = "" },
			wantErr: "environment is required",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "zero query timeout",
			mutate:  func(c *Config) { c.Database.QueryTimeout = 0 },
			wantErr: "database.query_timeout must be greater than 0",
		},
		{
			name:    "rate without burst",
			mutate:  func(c *Config) { c.RateLimit = RateLimitConfig{RequestsPerSecond: 5} },
			wantErr: "rate_limit.burst must be greater than 0",
		},
		{
			name:    "unknown events type",
			mutate:  func(c *Config) { c.Events.Type = "rabbitmq" },
			wantErr: "events.type must be",
		},
		{
			name: "dynamodb without table",
			mutate: func(c *Config) {
				c.Events.Type = "dynamodb"
				c.Events.DynamoDB.Region = "us-east-1"
			},
			wantErr: "events.dynamodb.table_name is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level must be",
		},
		{
			name: "mysql profile without host",
			mutate: func(c *Config) {
				c.Environments["development"] = ProfileConfig{Type: "mysql", Database: "armory", Username: "armory"}
			},
			wantErr: "environments.development.host is required",
		},
		{
			name: "sqlite profile without path",
			mutate: func(c *Config) {
				c.Environments["development"] = ProfileConfig{Type: "sqlite"}
			},
			wantErr: "environments.development.path is required for sqlite",
		},
		{
			name: "unknown profile type",
			mutate: func(c *Config) {
				c.Environments["development"] = ProfileConfig{Type: "postgres", DSN: "x"}
			},
			wantErr: "environments.development.type must be 'sqlite' or 'mysql'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("mysql dsn skips field checks", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Environments["development"] = ProfileConfig{Type: "mysql", DSN: "u:p@tcp(db:3306)/armory"}
		assert.NoError(t, validateConfig(cfg))
	})
}
