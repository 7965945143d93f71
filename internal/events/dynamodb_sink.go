package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rzpsarthak13/armory/internal/core"
)

func init() {
	RegisterFactory(&dynamoDBSinkFactory{})
}

type dynamoDBSinkFactory struct{}

func (f *dynamoDBSinkFactory) Type() string {
	return "dynamodb"
}

func (f *dynamoDBSinkFactory) Validate(config SinkConfig) error {
	if config.Region == "" {
		return fmt.Errorf("region is required")
	}
	if config.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	if (config.AccessKeyID == "") != (config.SecretAccessKey == "") {
		return fmt.Errorf("access key id and secret access key must be set together")
	}
	return nil
}

func (f *dynamoDBSinkFactory) Create(cfg SinkConfig, logger *slog.Logger) (core.EventSink, error) {
	return NewDynamoDBSink(cfg, logger)
}

// DynamoDBSink records change events in a DynamoDB audit table keyed by event_id.
type DynamoDBSink struct {
	client    *dynamodb.Client
	tableName string
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDynamoDBSink loads AWS configuration and verifies the audit table exists.
func NewDynamoDBSink(cfg SinkConfig, logger *slog.Logger) (*DynamoDBSink, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	clientOptions := []func(*dynamodb.Options){}
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	client := dynamodb.NewFromConfig(awsCfg, clientOptions...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(cfg.TableName),
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to DynamoDB table %s: %w", cfg.TableName, err)
	}

	return &DynamoDBSink{
		client:    client,
		tableName: cfg.TableName,
		logger:    logger.With("component", "events", "sink", "dynamodb"),
	}, nil
}

// Deliver writes the event once. A retried event whose earlier write landed
// hits the condition check and counts as delivered.
func (d *DynamoDBSink) Deliver(ctx context.Context, event *core.ChangeEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fmt.Errorf("dynamodb sink is closed")
	}

	item, err := dynamoItem(event)
	if err != nil {
		return err
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(event_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			d.logger.Debug("event already recorded", "event_id", event.ID)
			return nil
		}
		return fmt.Errorf("failed to put event %s: %w", event.ID, err)
	}

	d.logger.Debug("event recorded", "event_id", event.ID)
	return nil
}

func (d *DynamoDBSink) Type() string {
	return "dynamodb"
}

// Close marks the sink closed. The SDK client holds no connection to release.
func (d *DynamoDBSink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// dynamoItem builds the audit table item for an event.
func dynamoItem(event *core.ChangeEvent) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{
		"event_id":  &types.AttributeValueMemberS{Value: event.ID},
		"resource":  &types.AttributeValueMemberS{Value: event.Resource},
		"operation": &types.AttributeValueMemberS{Value: string(event.Operation)},
		"record_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(event.RecordID, 10)},
		"timestamp": &types.AttributeValueMemberS{Value: event.Timestamp.UTC().Format(time.RFC3339Nano)},
	}

	if event.Record != nil {
		record, err := json.Marshal(event.Record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		item["record"] = &types.AttributeValueMemberS{Value: string(record)}
	}
	return item, nil
}
