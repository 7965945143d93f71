package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/metrics"
)

type instrumentedGateway struct {
	next     core.Gateway
	resource string
	metrics  *metrics.Metrics
}

// WithMetrics decorates a gateway with per-operation counters and latency histograms.
func WithMetrics(next core.Gateway, resource *core.Resource, m *metrics.Metrics) core.Gateway {
	return &instrumentedGateway{next: next, resource: resource.Plural, metrics: m}
}

func (i *instrumentedGateway) ListAll(ctx context.Context) ([]core.Record, error) {
	start := time.Now()
	records, err := i.next.ListAll(ctx)
	i.record("list", start, err)
	return records, err
}

func (i *instrumentedGateway) GetByID(ctx context.Context, id int64) (core.Record, error) {
	start := time.Now()
	record, err := i.next.GetByID(ctx, id)
	i.record("get", start, err)
	return record, err
}

func (i *instrumentedGateway) Create(ctx context.Context, fields core.Record) (core.Record, error) {
	start := time.Now()
	record, err := i.next.Create(ctx, fields)
	i.record("create", start, err)
	return record, err
}

func (i *instrumentedGateway) Update(ctx context.Context, id int64, fields core.Record) (core.Record, error) {
	start := time.Now()
	record, err := i.next.Update(ctx, id, fields)
	i.record("update", start, err)
	return record, err
}

func (i *instrumentedGateway) DeleteByID(ctx context.Context, id int64) error {
	start := time.Now()
	err := i.next.DeleteByID(ctx, id)
	i.record("delete", start, err)
	return err
}

func (i *instrumentedGateway) record(operation string, start time.Time, err error) {
	i.metrics.RecordGatewayOperation(i.resource, operation, outcome(err), time.Since(start))
}

// outcome names the result class of a gateway call for metric labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case core.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
