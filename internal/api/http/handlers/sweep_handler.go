package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supportstack/sla-engine/internal/worker"
)

// SweepHandler exposes a manual trigger for the breach sweep.
type SweepHandler struct {
	sweep *worker.SweepWorker
}

// NewSweepHandler constructs handler.
func NewSweepHandler(sweep *worker.SweepWorker) *SweepHandler {
	return &SweepHandler{sweep: sweep}
}

// Run POST /admin/sweep.
func (h *SweepHandler) Run(c *fiber.Ctx) error {
	fired := h.sweep.RunOnce(c.UserContext(), time.Now())
	return respond(c, http.StatusOK, "sweep completed", fiber.Map{"events_fired": fired})
}
