package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rzpsarthak13/armory/internal/core"
)

// publishingGateway publishes a change event after every successful mutation.
type publishingGateway struct {
	next      core.Gateway
	resource  string
	pk        string
	publisher core.EventPublisher
	logger    *slog.Logger
}

// WithEvents decorates a gateway so committed mutations are published.
// Publish failures are logged and never fail the call.
func WithEvents(next core.Gateway, resource *core.Resource, publisher core.EventPublisher, logger *slog.Logger) core.Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &publishingGateway{
		next:      next,
		resource:  resource.Plural,
		pk:        resource.Schema.PrimaryKey,
		publisher: publisher,
		logger:    logger.With("component", "gateway", "resource", resource.Plural),
	}
}

func (p *publishingGateway) ListAll(ctx context.Context) ([]core.Record, error) {
	return p.next.ListAll(ctx)
}

func (p *publishingGateway) GetByID(ctx context.Context, id int64) (core.Record, error) {
	return p.next.GetByID(ctx, id)
}

func (p *publishingGateway) Create(ctx context.Context, fields core.Record) (core.Record, error) {
	record, err := p.next.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	if id, ok := record[p.pk].(int64); ok {
		p.publish(ctx, core.OperationCreate, id, record)
	}
	return record, nil
}

func (p *publishingGateway) Update(ctx context.Context, id int64, fields core.Record) (core.Record, error) {
	record, err := p.next.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if p.changes(fields) {
		p.publish(ctx, core.OperationUpdate, id, record)
	}
	return record, nil
}

// changes reports whether an update names any column besides the primary
// key. The key alone is accepted when it matches and is then dropped.
func (p *publishingGateway) changes(fields core.Record) bool {
	for name := range fields {
		if name != p.pk {
			return true
		}
	}
	return false
}

func (p *publishingGateway) DeleteByID(ctx context.Context, id int64) error {
	if err := p.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	p.publish(ctx, core.OperationDelete, id, nil)
	return nil
}

func (p *publishingGateway) publish(ctx context.Context, op core.OperationType, id int64, record core.Record) {
	event := &core.ChangeEvent{
		ID:        uuid.NewString(),
		Resource:  p.resource,
		Operation: op,
		RecordID:  id,
		Record:    record,
		Timestamp: time.Now().UTC(),
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("change event not published", "operation", op, "id", id, "error", err)
	}
}
