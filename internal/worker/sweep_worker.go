package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/config"
	"github.com/supportstack/sla-engine/internal/repository"
	"github.com/supportstack/sla-engine/internal/service"
)

// SweepWorker periodically scans every tenant's open tickets for SLA
// breaches. Sweeps for a tenant run to completion even when individual
// tickets fail; the cron scheduler skips a tick if the previous run of
// the same job is still active.
type SweepWorker struct {
	breaches *service.BreachService
	tickets  repository.TicketRepository
	logger   *zap.Logger
	cron     *cron.Cron
	spec     string
}

// NewSweepWorker builds the worker from config. The returned worker is
// inert until Start is called.
func NewSweepWorker(cfg config.SweepConfig, breaches *service.BreachService, tickets repository.TicketRepository, logger *zap.Logger) *SweepWorker {
	return &SweepWorker{
		breaches: breaches,
		tickets:  tickets,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:     cfg.CronSpec,
	}
}

// Start registers the sweep job and launches the scheduler.
func (w *SweepWorker) Start() error {
	_, err := w.cron.AddFunc(w.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		w.RunOnce(ctx, time.Now())
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("breach sweep scheduled", zap.String("spec", w.spec))
	return nil
}

// Stop halts the scheduler and waits for any in-flight sweep.
func (w *SweepWorker) Stop() {
	<-w.cron.Stop().Done()
}

// RunOnce executes a single sweep across all tenants and returns the
// number of breach events fired. Also used for manual trigger via the
// admin endpoint.
func (w *SweepWorker) RunOnce(ctx context.Context, now time.Time) int {
	tenants, err := w.tickets.ListTenantIDs(ctx)
	if err != nil {
		w.logger.Error("sweep: listing tenants failed", zap.Error(err))
		return 0
	}

	total := 0
	for _, tenantID := range tenants {
		fired, err := w.breaches.CheckAllOpenTicketsForBreach(ctx, tenantID, now)
		if err != nil {
			w.logger.Error("sweep: tenant scan failed",
				zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		total += fired
	}
	if total > 0 {
		w.logger.Info("breach sweep completed",
			zap.Int("events_fired", total), zap.Int("tenants", len(tenants)))
	}
	return total
}
