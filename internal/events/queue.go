package events

import (
	"errors"
	"sync"

	"github.com/rzpsarthak13/armory/internal/core"
)

var (
	// ErrQueueFull is returned when the queue has no free slot.
	ErrQueueFull = errors.New("event queue is full")

	// ErrQueueClosed is returned when enqueueing to a closed queue.
	ErrQueueClosed = errors.New("event queue is closed")
)

// DefaultQueueSize is used when no capacity is configured.
const DefaultQueueSize = 10000

// Queue is a bounded in-memory FIFO of change events. Enqueue never blocks.
type Queue struct {
	events   chan *core.ChangeEvent
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Queue{
		events:   make(chan *core.ChangeEvent, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an event, failing immediately with ErrQueueFull when there is no room.
func (q *Queue) Enqueue(event *core.ChangeEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// TryDequeue returns the next event without waiting.
func (q *Queue) TryDequeue() (*core.ChangeEvent, bool) {
	select {
	case event, ok := <-q.events:
		return event, ok
	default:
		return nil, false
	}
}

// Size returns the current number of queued events.
func (q *Queue) Size() int {
	return len(q.events)
}

// Capacity returns the maximum number of queued events.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Close stops accepting events. Already queued events can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.events)
}
