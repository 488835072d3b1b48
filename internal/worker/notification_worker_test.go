package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/config"
	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/internal/events"
	"github.com/supportstack/sla-engine/internal/observability"
)

func dispatchedEvent(id string) events.Event {
	return events.Event{
		ID:       id,
		Type:     events.EventNotificationDispatched,
		TenantID: "t1",
		Payload: events.NotificationDispatchedPayload{
			NotificationID: id,
			Audience:       domain.AudienceManager,
			Type:           domain.NotificationTypeSLABreach,
			Message:        "deadline missed",
		},
	}
}

func TestNotificationWorkerDeliversQueued(t *testing.T) {
	metrics := observability.NewMetrics()
	w := NewNotificationWorker(config.NotificationConfig{QueueSize: 4}, metrics, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	w.Start(dispatcher)

	for i := 0; i < 3; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), dispatchedEvent("n1")))
	}
	w.Stop()

	snapshot := metrics.Snapshot()
	assert.Equal(t, int64(3), snapshot.NotificationsQueued)
	assert.Equal(t, int64(0), snapshot.NotificationsDropped)
}

func TestNotificationWorkerDropsWhenFull(t *testing.T) {
	metrics := observability.NewMetrics()
	w := NewNotificationWorker(config.NotificationConfig{QueueSize: 2}, metrics, zap.NewNop())

	// no run loop: the queue fills and overflow is dropped
	for i := 0; i < 5; i++ {
		require.NoError(t, w.handleEvent(context.Background(), dispatchedEvent("n1")))
	}

	snapshot := metrics.Snapshot()
	assert.Equal(t, int64(2), snapshot.NotificationsQueued)
	assert.Equal(t, int64(3), snapshot.NotificationsDropped)
}

func TestNotificationWorkerRejectsUnknownPayload(t *testing.T) {
	w := NewNotificationWorker(config.NotificationConfig{QueueSize: 1}, observability.NewMetrics(), zap.NewNop())
	err := w.handleEvent(context.Background(), events.Event{Type: events.EventNotificationDispatched, Payload: "bogus"})
	assert.Error(t, err)
}

func TestNotificationWorkerStopDrains(t *testing.T) {
	metrics := observability.NewMetrics()
	w := NewNotificationWorker(config.NotificationConfig{QueueSize: 8}, metrics, zap.NewNop())

	for i := 0; i < 5; i++ {
		require.NoError(t, w.handleEvent(context.Background(), dispatchedEvent("n1")))
	}
	go w.run()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not drain the queue in time")
	}
}
