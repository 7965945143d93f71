package events

import (
	"context"
	"log/slog"

	"github.com/rzpsarthak13/armory/internal/core"
)

func init() {
	RegisterFactory(&logSinkFactory{})
}

type logSinkFactory struct{}

func (f *logSinkFactory) Type() string {
	return "log"
}

func (f *logSinkFactory) Validate(config SinkConfig) error {
	return nil
}

func (f *logSinkFactory) Create(config SinkConfig, logger *slog.Logger) (core.EventSink, error) {
	return NewLogSink(logger), nil
}

// LogSink writes change events to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs every event at info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "events", "sink", "log")}
}

func (s *LogSink) Deliver(ctx context.Context, event *core.ChangeEvent) error {
	s.logger.InfoContext(ctx, "change event",
		"event_id", event.ID,
		"resource", event.Resource,
		"operation", event.Operation,
		"record_id", event.RecordID,
		"timestamp", event.Timestamp,
	)
	return nil
}

func (s *LogSink) Type() string {
	return "log"
}

func (s *LogSink) Close() error {
	return nil
}
