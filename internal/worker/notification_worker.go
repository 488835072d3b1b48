package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/config"
	"github.com/supportstack/sla-engine/internal/events"
	"github.com/supportstack/sla-engine/internal/observability"
)

// delivery is one outbound message waiting in the queue.
type delivery struct {
	notificationID string
	tenantID       string
	audience       string
	kind           string
	message        string
}

// NotificationWorker drains dispatched notifications through a bounded
// queue. Producers never block: when the queue is full the delivery is
// dropped and counted. The notification record itself is already
// persisted by the producing service, so a drop loses only the
// outbound side channel.
type NotificationWorker struct {
	cfg     config.NotificationConfig
	queue   chan delivery
	logger  *zap.Logger
	metrics *observability.Metrics

	stopOnce sync.Once
	done     chan struct{}
	drained  chan struct{}
}

// NewNotificationWorker builds the worker with a queue sized from
// config.
func NewNotificationWorker(cfg config.NotificationConfig, metrics *observability.Metrics, logger *zap.Logger) *NotificationWorker {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &NotificationWorker{
		cfg:     cfg,
		queue:   make(chan delivery, size),
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Start subscribes to dispatched-notification events and launches the
// delivery loop.
func (w *NotificationWorker) Start(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventNotificationDispatched, w.handleEvent)
	go w.run()
}

// Stop closes intake and waits until queued deliveries finish.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	<-w.drained
}

func (w *NotificationWorker) handleEvent(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NotificationDispatchedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	w.enqueue(delivery{
		notificationID: payload.NotificationID,
		tenantID:       event.TenantID,
		audience:       string(payload.Audience),
		kind:           string(payload.Type),
		message:        payload.Message,
	})
	return nil
}

func (w *NotificationWorker) enqueue(d delivery) {
	select {
	case w.queue <- d:
		w.metrics.RecordNotificationQueued()
	default:
		w.metrics.RecordNotificationDropped()
		w.logger.Warn("notification queue full, dropping delivery",
			zap.String("notification_id", d.notificationID),
			zap.String("audience", d.audience))
	}
}

func (w *NotificationWorker) run() {
	defer close(w.drained)
	for {
		select {
		case d := <-w.queue:
			w.deliver(d)
		case <-w.done:
			// drain what is already queued, then exit
			for {
				select {
				case d := <-w.queue:
					w.deliver(d)
				default:
					return
				}
			}
		}
	}
}

// deliver pushes a single message out. Email and webhook sends are
// stubbed as structured log lines carrying the configured endpoints.
func (w *NotificationWorker) deliver(d delivery) {
	w.logger.Info("notification delivered",
		zap.String("notification_id", d.notificationID),
		zap.String("tenant_id", d.tenantID),
		zap.String("audience", d.audience),
		zap.String("type", d.kind),
		zap.String("email_from", w.cfg.EmailFrom),
		zap.String("webhook_url", w.cfg.WebhookURL),
		zap.String("message", d.message),
	)
}
