package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIRE-AND-FORGET PUBLISHER
// ══════════════════════════════════════════════════════════════════════════════

// Publisher wraps an EventBus with fire-and-forget semantics. Emit never
// returns an error and never blocks the caller on broker latency: delivery
// happens on a background goroutine with bounded retries, and events that
// still fail land in a dead letter queue for inspection.
//
// Request handling must never fail because analytics lagged behind.
type Publisher struct {
	bus        shared.EventBus
	retrier    *retry.Retrier
	deadLetter *DeadLetterQueue
	logger     *slog.Logger
	metrics    *PublisherMetrics
	timeout    time.Duration
	mu         sync.RWMutex
	closed     bool
	closeCh    chan struct{}
	wg         sync.WaitGroup
}

// PublisherConfig contains configuration for Publisher.
type PublisherConfig struct {
	// Bus is the underlying event bus
	Bus shared.EventBus

	// Retrier controls retry behavior for failed publishes.
	// Defaults to retry.PublishRetrier.
	Retrier *retry.Retrier

	// DeadLetterQueueSize is the max size of the DLQ
	DeadLetterQueueSize int

	// PublishTimeout bounds a single delivery attempt
	PublishTimeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultPublisherConfig returns sensible defaults.
func DefaultPublisherConfig(bus shared.EventBus) PublisherConfig {
	return PublisherConfig{
		Bus:                 bus,
		DeadLetterQueueSize: 1000,
		PublishTimeout:      5 * time.Second,
	}
}

// NewPublisher creates a fire-and-forget publisher on top of bus.
func NewPublisher(config PublisherConfig) *Publisher {
	if config.Retrier == nil {
		config.Retrier = retry.PublishRetrier()
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Publisher{
		bus:        config.Bus,
		retrier:    config.Retrier,
		deadLetter: NewDeadLetterQueue(config.DeadLetterQueueSize),
		logger:     config.Logger,
		metrics:    NewPublisherMetrics(),
		timeout:    config.PublishTimeout,
		closeCh:    make(chan struct{}),
	}
}

// Emit hands the event off for background delivery. It returns immediately
// and never reports failure to the caller. Nil events and events emitted
// after Close are dropped.
func (p *Publisher) Emit(event shared.Event) {
	if event == nil {
		return
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		p.logger.Warn("event dropped, publisher closed", "event_type", event.EventType())
		return
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	p.metrics.RecordEmit(event.EventType())

	go func() {
		defer p.wg.Done()
		p.deliver(event)
	}()
}

// deliver attempts delivery with retries; terminal failures go to the DLQ.
func (p *Publisher) deliver(event shared.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	attempts := 0
	err := p.retrier.Do(ctx, func(ctx context.Context) error {
		attempts++
		select {
		case <-p.closeCh:
			return retry.Permanent(ErrEventBusClosed)
		default:
		}
		return p.bus.Publish(event)
	})

	if err == nil {
		p.metrics.RecordDelivery(event.EventType(), attempts > 1)
		return
	}

	p.deadLetter.Add(DeadLetterEntry{
		Event:       event,
		HandlerName: "publisher",
		Error:       err,
		Attempts:    attempts,
		FailedAt:    time.Now(),
	})
	p.metrics.RecordFailure(event.EventType())

	p.logger.Error("event delivery failed",
		"event_type", event.EventType(),
		"topic", event.Topic(),
		"aggregate_id", event.AggregateID(),
		"attempts", attempts,
		"error", err,
	)
}

// EmitAll emits a batch of events. Delivery of each event is independent.
func (p *Publisher) EmitAll(events []shared.Event) {
	for _, event := range events {
		p.Emit(event)
	}
}

// DeadLetterQueue returns the queue of events that exhausted retries.
func (p *Publisher) DeadLetterQueue() *DeadLetterQueue {
	return p.deadLetter
}

// Redrive pops up to limit dead-lettered events and hands them back to
// Emit for another delivery attempt. An event that fails again simply
// returns to the queue. Returns the number of events redriven.
func (p *Publisher) Redrive(limit int) int {
	if limit <= 0 {
		return 0
	}

	redriven := 0
	for redriven < limit {
		entry, ok := p.deadLetter.Pop()
		if !ok {
			break
		}
		redriven++
		p.logger.Info("redriving dead-lettered event",
			"event_type", entry.Event.EventType(),
			"failed_at", entry.FailedAt,
		)
		p.Emit(entry.Event)
	}
	return redriven
}

// Metrics returns publisher metrics.
func (p *Publisher) Metrics() *PublisherMetrics {
	return p.metrics
}

// Close waits for in-flight deliveries and stops accepting new events.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.closeCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("publisher closed",
		"dead_lettered", p.deadLetter.Size(),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry represents an event that could not be delivered.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       error
	Attempts    int
	FailedAt    time.Time
}

// DeadLetterQueue stores events that failed delivery.
type DeadLetterQueue struct {
	mu      sync.RWMutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a new dead letter queue.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &DeadLetterQueue{
		entries: make([]DeadLetterEntry, 0),
		maxSize: maxSize,
	}
}

// Add adds an entry to the queue.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Remove oldest if at capacity
	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}

	q.entries = append(q.entries, entry)
}

// Entries returns all entries.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]DeadLetterEntry, len(q.entries))
	copy(result, q.entries)
	return result
}

// Size returns the current queue size.
func (q *DeadLetterQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Clear removes all entries.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make([]DeadLetterEntry, 0)
}

// Pop removes and returns the oldest entry.
func (q *DeadLetterQueue) Pop() (DeadLetterEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return DeadLetterEntry{}, false
	}

	entry := q.entries[0]
	q.entries = q.entries[1:]
	return entry, true
}

// ══════════════════════════════════════════════════════════════════════════════
// PUBLISHER METRICS
// ══════════════════════════════════════════════════════════════════════════════

// PublisherMetrics tracks publisher performance.
type PublisherMetrics struct {
	mu sync.RWMutex

	EmittedTotal   map[shared.EventType]int64
	DeliveredTotal int64
	RetriedTotal   int64
	FailedTotal    int64
}

// NewPublisherMetrics creates new publisher metrics.
func NewPublisherMetrics() *PublisherMetrics {
	return &PublisherMetrics{
		EmittedTotal: make(map[shared.EventType]int64),
	}
}

// RecordEmit records an emitted event.
func (m *PublisherMetrics) RecordEmit(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmittedTotal[eventType]++
}

// RecordDelivery records a successful delivery.
func (m *PublisherMetrics) RecordDelivery(eventType shared.EventType, retried bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveredTotal++
	if retried {
		m.RetriedTotal++
	}
}

// RecordFailure records a terminal delivery failure.
func (m *PublisherMetrics) RecordFailure(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailedTotal++
}

// Snapshot returns a point-in-time snapshot.
func (m *PublisherMetrics) Snapshot() PublisherMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var emitted int64
	for _, v := range m.EmittedTotal {
		emitted += v
	}

	return PublisherMetricsSnapshot{
		Emitted:   emitted,
		Delivered: m.DeliveredTotal,
		Retried:   m.RetriedTotal,
		Failed:    m.FailedTotal,
	}
}

// PublisherMetricsSnapshot is a point-in-time snapshot of metrics.
type PublisherMetricsSnapshot struct {
	Emitted   int64
	Delivered int64
	Retried   int64
	Failed    int64
}
