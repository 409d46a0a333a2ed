package messaging

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:     false,
		EnableMetrics: true,
	})
}

func TestInMemoryEventBusSubscribe(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var got []shared.Event
	err := bus.Subscribe(shared.EventStudentRegistered, func(event shared.Event) error {
		got = append(got, event)
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("student-1", "a@example.com", "A", "10")))
	// Different type, handler must not fire.
	assert.NoError(t, bus.Publish(shared.NewChatMessageSentEvent("session-1", "student-1", "user", "hi")))

	if assert.Len(t, got, 1) {
		assert.Equal(t, "student-1", got[0].AggregateID())
	}
}

func TestInMemoryEventBusSubscribeAll(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var count int
	assert.NoError(t, bus.SubscribeAll(func(event shared.Event) error {
		count++
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("s1", "a@example.com", "A", "10")))
	assert.NoError(t, bus.Publish(shared.NewChatMessageSentEvent("c1", "s1", "user", "hi")))

	assert.Equal(t, 2, count)
}

func TestInMemoryEventBusNilHandler(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventStudentRegistered, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestInMemoryEventBusHandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		return errors.New("handler broke")
	}))

	// Publish reports success even when a handler fails.
	assert.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent("s1", "a@example.com", "A", "10")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalHandlerExecs)
	assert.Equal(t, 0.0, snap.HandlerSuccessRate)
}

func TestInMemoryEventBusClosed(t *testing.T) {
	bus := newSyncBus()
	assert.NoError(t, bus.Close())
	assert.NoError(t, bus.Close())

	err := bus.Publish(shared.NewStudentRegisteredEvent("s1", "a@example.com", "A", "10"))
	assert.ErrorIs(t, err, ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventStudentRegistered, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBusAsyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
	})

	var mu sync.Mutex
	seen := make(map[string]bool)
	assert.NoError(t, bus.SubscribeAll(func(event shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen[event.AggregateID()] = true
		return nil
	}))

	for _, id := range []string{"s1", "s2", "s3"} {
		assert.NoError(t, bus.Publish(shared.NewStudentRegisteredEvent(id, "a@example.com", "A", "10")))
	}

	// Close waits for in-flight handlers.
	assert.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestAllTopicsCoverEveryEvent(t *testing.T) {
	topics := AllTopics()
	assert.Contains(t, topics, shared.TopicStudentEvents)
	assert.Contains(t, topics, shared.TopicChatMessages)
	assert.Contains(t, topics, shared.TopicSubmissions)
	assert.Contains(t, topics, shared.TopicProgressUpdate)
	assert.Contains(t, topics, shared.TopicSystemEvents)
}
