package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzpsarthak13/armory/internal/core"
)

func init() {
	RegisterFactory(&kafkaSinkFactory{})
}

type kafkaSinkFactory struct{}

func (f *kafkaSinkFactory) Type() string {
	return "kafka"
}

func (f *kafkaSinkFactory) Validate(config SinkConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("at least one Kafka broker is required")
	}
	if config.Topic == "" {
		return fmt.Errorf("Kafka topic is required")
	}
	switch config.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("required_acks must be -1, 0 or 1")
	}
	return nil
}

func (f *kafkaSinkFactory) Create(config SinkConfig, logger *slog.Logger) (core.EventSink, error) {
	return NewKafkaSink(config, logger), nil
}

// KafkaSink produces change events to a Kafka topic. Events of the same
// record share a message key, so they land on the same partition in order.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaSink creates a synchronous Kafka producer. Connections are opened
// lazily on the first write.
func NewKafkaSink(config SinkConfig, logger *slog.Logger) *KafkaSink {
	batchTimeout := config.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Endpoints...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  1, // retries are owned by the dispatcher
		Async:        false,
	}

	logger = logger.With("component", "events", "sink", "kafka")
	logger.Info("kafka sink initialized", "brokers", config.Endpoints, "topic", config.Topic)

	return &KafkaSink{
		writer: writer,
		topic:  config.Topic,
		logger: logger,
	}
}

func (k *KafkaSink) Deliver(ctx context.Context, event *core.ChangeEvent) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return fmt.Errorf("kafka sink is closed")
	}

	message, err := kafkaMessage(event)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write to topic %s: %w", k.topic, err)
	}

	k.logger.Debug("event produced", "event_id", event.ID, "key", string(message.Key))
	return nil
}

func (k *KafkaSink) Type() string {
	return "kafka"
}

func (k *KafkaSink) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	return k.writer.Close()
}

// kafkaMessage builds the message for an event, keyed by resource and record id.
func kafkaMessage(event *core.ChangeEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal change event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.Resource + ":" + strconv.FormatInt(event.RecordID, 10)),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "resource", Value: []byte(event.Resource)},
			{Key: "operation", Value: []byte(event.Operation)},
		},
	}, nil
}
