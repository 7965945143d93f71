package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/armory/internal/core"
)

const defaultRedisKeyPrefix = "armory:events"

func init() {
	RegisterFactory(&redisSinkFactory{})
}

type redisSinkFactory struct{}

func (f *redisSinkFactory) Type() string {
	return "redis"
}

func (f *redisSinkFactory) Validate(config SinkConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}
	if config.MaxLen < 0 {
		return fmt.Errorf("max_len cannot be negative")
	}
	return nil
}

func (f *redisSinkFactory) Create(config SinkConfig, logger *slog.Logger) (core.EventSink, error) {
	return NewRedisSink(config, logger)
}

// RedisSink appends change events to one Redis list per resource.
type RedisSink struct {
	client    *redis.Client
	keyPrefix string
	maxLen    int64
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewRedisSink connects to the first configured endpoint and verifies it with PING.
func NewRedisSink(config SinkConfig, logger *slog.Logger) (*RedisSink, error) {
	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Endpoints[0],
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  dialTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}

	return &RedisSink{
		client:    client,
		keyPrefix: prefix,
		maxLen:    config.MaxLen,
		logger:    logger.With("component", "events", "sink", "redis"),
	}, nil
}

// Deliver pushes the event onto the resource's list, trimming it to maxLen
// entries when a limit is set.
func (r *RedisSink) Deliver(ctx context.Context, event *core.ChangeEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("redis sink is closed")
	}

	key := redisListKey(r.keyPrefix, event.Resource)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	if r.maxLen > 0 {
		pipe.LTrim(ctx, key, -r.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push event to %s: %w", key, err)
	}

	r.logger.Debug("event pushed", "key", key, "event_id", event.ID)
	return nil
}

func (r *RedisSink) Type() string {
	return "redis"
}

func (r *RedisSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

// redisListKey returns the list key holding a resource's events.
func redisListKey(prefix, resource string) string {
	return fmt.Sprintf("%s:%s", prefix, resource)
}
