package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/supportstack/sla-engine/internal/observability"
)

// MetricsHandler exposes the in-memory counters.
type MetricsHandler struct {
	metrics *observability.Metrics
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metrics *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Snapshot GET /admin/metrics.
func (h *MetricsHandler) Snapshot(c *fiber.Ctx) error {
	snapshot := h.metrics.Snapshot()
	return respond(c, http.StatusOK, "metrics snapshot", fiber.Map{
		"requests":              snapshot.Requests,
		"errors":                snapshot.Errors,
		"breaches":              snapshot.Breaches,
		"actions":               snapshot.Actions,
		"notifications_queued":  snapshot.NotificationsQueued,
		"notifications_dropped": snapshot.NotificationsDropped,
	})
}
