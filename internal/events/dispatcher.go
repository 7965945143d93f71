package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/metrics"
)

// DispatcherConfig contains configuration for the dispatcher.
type DispatcherConfig struct {
	// QueueSize is the maximum number of events waiting for delivery.
	QueueSize int

	// DeliveryRate is the maximum number of sink deliveries per second.
	// Zero or less means unlimited.
	DeliveryRate int

	// MaxRetries is the number of retries after a failed delivery.
	MaxRetries int

	// RetryBackoff is the base duration for exponential backoff retries.
	RetryBackoff time.Duration

	// DeliveryTimeout bounds a single delivery attempt.
	DeliveryTimeout time.Duration
}

// DefaultDispatcherConfig returns sensible defaults for the dispatcher.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:       DefaultQueueSize,
		DeliveryRate:    100,
		MaxRetries:      3,
		RetryBackoff:    500 * time.Millisecond,
		DeliveryTimeout: 5 * time.Second,
	}
}

// Dispatcher accepts change events without blocking and forwards them to a
// sink from a background goroutine at a bounded rate.
type Dispatcher struct {
	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	doneCh  chan struct{}

	queue   *Queue
	sink    core.EventSink
	config  DispatcherConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher delivering to sink.
func NewDispatcher(sink core.EventSink, config DispatcherConfig, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaults.RetryBackoff
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = defaults.DeliveryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		queue:   NewQueue(config.QueueSize),
		sink:    sink,
		config:  config,
		metrics: m,
		logger:  logger.With("component", "events", "sink", sink.Type()),
	}
}

// Publish queues an event for delivery. When the queue is full the event is
// dropped, counted, and ErrQueueFull returned.
func (d *Dispatcher) Publish(ctx context.Context, event *core.ChangeEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if err := d.queue.Enqueue(event); err != nil {
		reason := "closed"
		if errors.Is(err, ErrQueueFull) {
			reason = "queue_full"
		}
		d.metrics.RecordEventDropped(reason)
		return err
	}

	d.metrics.RecordEventPublished(event.Resource, string(event.Operation))
	d.metrics.SetEventQueueDepth(d.queue.Size())
	return nil
}

// Start begins the delivery goroutine. A stopped dispatcher cannot be restarted.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	if d.stopped {
		return fmt.Errorf("dispatcher already stopped")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancel = cancel
	d.doneCh = make(chan struct{})

	go d.run(runCtx)

	d.logger.Info("dispatcher started",
		"delivery_rate", d.config.DeliveryRate,
		"queue_size", d.config.QueueSize,
		"max_retries", d.config.MaxRetries)
	return nil
}

// Stop stops accepting events and waits for queued ones to be delivered.
// If ctx ends first, delivery is abandoned and the remaining events are
// dropped. The sink is closed in both cases, even if Start was never called.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	wasRunning := d.running
	d.running = false
	d.mu.Unlock()

	d.queue.Close()

	if wasRunning {
		select {
		case <-d.doneCh:
		case <-ctx.Done():
			d.cancel()
			<-d.doneCh
		}
		d.cancel()
	}

	dropped := 0
	for {
		if _, ok := d.queue.TryDequeue(); !ok {
			break
		}
		dropped++
		d.metrics.RecordEventDropped("shutdown")
	}
	d.metrics.SetEventQueueDepth(0)

	d.logger.Info("dispatcher stopped", "dropped", dropped)
	return d.sink.Close()
}

// QueueSize returns the number of events waiting for delivery.
func (d *Dispatcher) QueueSize() int {
	return d.queue.Size()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.doneCh)

	limit := rate.Inf
	if d.config.DeliveryRate > 0 {
		limit = rate.Limit(d.config.DeliveryRate)
	}
	limiter := rate.NewLimiter(limit, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.queue.events:
			if !ok {
				return
			}
			d.metrics.SetEventQueueDepth(d.queue.Size())

			if err := limiter.Wait(ctx); err != nil {
				d.metrics.RecordEventDropped("shutdown")
				return
			}
			d.deliver(ctx, event)
		}
	}
}

// deliver attempts delivery with exponential backoff between retries.
func (d *Dispatcher) deliver(ctx context.Context, event *core.ChangeEvent) {
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, d.config.DeliveryTimeout)
		err := d.sink.Deliver(attemptCtx, event)
		cancel()

		if err == nil {
			d.metrics.RecordEventDelivered(d.sink.Type())
			return
		}
		d.metrics.RecordEventFailed(d.sink.Type())

		if event.RetryCount >= d.config.MaxRetries {
			d.logger.Error("event delivery failed, dropping",
				"event_id", event.ID, "resource", event.Resource,
				"attempts", event.RetryCount+1, "error", err)
			d.metrics.RecordEventDropped("retries_exhausted")
			return
		}

		backoff := d.config.RetryBackoff * time.Duration(1<<event.RetryCount)
		event.RetryCount++
		d.logger.Warn("event delivery failed, retrying",
			"event_id", event.ID, "attempt", event.RetryCount, "backoff", backoff, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			d.metrics.RecordEventDropped("shutdown")
			return
		}
	}
}
