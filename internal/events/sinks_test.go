package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/armory/internal/core"
)

func sampleEvent() *core.ChangeEvent {
	return &core.ChangeEvent{
		ID:        "4b1c7f52-1f0e-4c55-9a39-0a3c1b0f2d11",
		Resource:  "swords",
		Operation: core.OperationUpdate,
		RecordID:  7,
		Record:    core.Record{"id": int64(7), "type": "katana", "attack": int64(99)},
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t, []string{"dynamodb", "kafka", "log", "redis"}, RegisteredTypes())
	assert.True(t, IsTypeRegistered("kafka"))
	assert.False(t, IsTypeRegistered("sqs"))
}

func TestRegisterFactory_PanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() { RegisterFactory(&logSinkFactory{}) })
	assert.Panics(t, func() { RegisterFactory(nil) })
}

func TestCreateSink_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  SinkConfig
		wantErr string
	}{
		{name: "missing type", config: SinkConfig{}, wantErr: "sink type is required"},
		{name: "unknown type", config: SinkConfig{Type: "sqs"}, wantErr: "unsupported sink type: sqs"},
		{name: "redis without endpoints", config: SinkConfig{Type: "redis"}, wantErr: "invalid configuration for redis"},
		{name: "redis negative max len", config: SinkConfig{Type: "redis", Endpoints: []string{"r:6379"}, MaxLen: -1}, wantErr: "max_len cannot be negative"},
		{name: "kafka without topic", config: SinkConfig{Type: "kafka", Endpoints: []string{"k:9092"}}, wantErr: "Kafka topic is required"},
		{name: "kafka bad acks", config: SinkConfig{Type: "kafka", Endpoints: []string{"k:9092"}, Topic: "t", RequiredAcks: 2}, wantErr: "required_acks must be -1, 0 or 1"},
		{name: "dynamodb without table", config: SinkConfig{Type: "dynamodb", Region: "us-east-1"}, wantErr: "table name is required"},
		{name: "dynamodb half credentials", config: SinkConfig{Type: "dynamodb", Region: "us-east-1", TableName: "audit", AccessKeyID: "AKIA"}, wantErr: "must be set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateSink(tt.config, testLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	sink, err := CreateSink(SinkConfig{Type: "log"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "log", sink.Type())

	require.NoError(t, sink.Deliver(context.Background(), sampleEvent()))
	require.NoError(t, sink.Close())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "change event", line["msg"])
	assert.Equal(t, "swords", line["resource"])
	assert.Equal(t, "updated", line["operation"])
	assert.Equal(t, float64(7), line["record_id"])
}

func TestKafkaSink_CreatesLazily(t *testing.T) {
	sink, err := CreateSink(SinkConfig{Type: "kafka", Endpoints: []string{"localhost:9092"}, Topic: "armory-changes", RequiredAcks: -1}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "kafka", sink.Type())
	require.NoError(t, sink.Close())

	err = sink.Deliver(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "closed")
}

func TestKafkaMessage(t *testing.T) {
	event := sampleEvent()
	msg, err := kafkaMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "swords:7", string(msg.Key))
	assert.Equal(t, event.Timestamp, msg.Time)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		"event_id":  event.ID,
		"resource":  "swords",
		"operation": "updated",
	}, headers)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "swords", decoded["resource"])
	assert.Equal(t, float64(7), decoded["record_id"])
	assert.NotContains(t, decoded, "RetryCount")
}

func TestDynamoItem(t *testing.T) {
	item, err := dynamoItem(sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "4b1c7f52-1f0e-4c55-9a39-0a3c1b0f2d11", item["event_id"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "7", item["record_id"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "2024-05-01T12:00:00Z", item["timestamp"].(*types.AttributeValueMemberS).Value)

	record := item["record"].(*types.AttributeValueMemberS).Value
	assert.JSONEq(t, `{"id":7,"type":"katana","attack":99}`, record)

	deleted := sampleEvent()
	deleted.Operation = core.OperationDelete
	deleted.Record = nil
	item, err = dynamoItem(deleted)
	require.NoError(t, err)
	assert.NotContains(t, item, "record")
	assert.Equal(t, "deleted", item["operation"].(*types.AttributeValueMemberS).Value)
}

func TestRedisListKey(t *testing.T) {
	assert.Equal(t, "armory:events:swords", redisListKey(defaultRedisKeyPrefix, "swords"))
	assert.Equal(t, "audit:potions", redisListKey("audit", "potions"))
}

func TestRedisSink_UnreachableServer(t *testing.T) {
	_, err := CreateSink(SinkConfig{
		Type:        "redis",
		Endpoints:   []string{"127.0.0.1:1"},
		DialTimeout: 200 * time.Millisecond,
	}, testLogger())
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
