package events

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/armory/internal/core"
)

// SinkFactory is the Strategy interface for creating change-event sinks.
// Each backend (log, Redis, Kafka, DynamoDB) registers one from init().
type SinkFactory interface {
	// Create creates a new sink instance based on the provided configuration.
	Create(config SinkConfig, logger *slog.Logger) (core.EventSink, error)

	// Type returns the type identifier for this factory (e.g., "redis", "kafka").
	Type() string

	// Validate validates the configuration specific to this sink type.
	Validate(config SinkConfig) error
}

// SinkConfig represents the configuration needed to create a sink.
type SinkConfig struct {
	Type string

	// Redis and Kafka
	Endpoints    []string
	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Redis-specific fields
	Password  string
	DB        int
	KeyPrefix string
	MaxLen    int64

	// Kafka-specific fields
	Topic        string
	RequiredAcks int
	BatchTimeout time.Duration

	// DynamoDB-specific fields
	Region          string
	TableName       string
	Endpoint        string // Optional, for LocalStack
	AccessKeyID     string // Optional, can use IAM role instead
	SecretAccessKey string // Optional, can use IAM role instead
}

var (
	factoryRegistry = make(map[string]SinkFactory)
	registryMutex   sync.RWMutex
)

// RegisterFactory registers a sink factory.
// This is called automatically by each implementation's init() function.
func RegisterFactory(factory SinkFactory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
}

// CreateSink creates a sink using the factory registered for config.Type.
func CreateSink(config SinkConfig, logger *slog.Logger) (core.EventSink, error) {
	if config.Type == "" {
		return nil, fmt.Errorf("sink type is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	registryMutex.RLock()
	factory, exists := factoryRegistry[config.Type]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported sink type: %s", config.Type)
	}

	if err := factory.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.Type, err)
	}
	return factory.Create(config, logger)
}

// RegisteredTypes returns every registered sink type, sorted.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsTypeRegistered checks if a sink type is registered.
func IsTypeRegistered(sinkType string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	_, exists := factoryRegistry[sinkType]
	return exists
}
