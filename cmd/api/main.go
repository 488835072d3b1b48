package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/supportstack/sla-engine/internal/api/http"
	"github.com/supportstack/sla-engine/internal/api/http/handlers"
	"github.com/supportstack/sla-engine/internal/audit"
	"github.com/supportstack/sla-engine/internal/auth"
	"github.com/supportstack/sla-engine/internal/config"
	"github.com/supportstack/sla-engine/internal/events"
	"github.com/supportstack/sla-engine/internal/observability"
	"github.com/supportstack/sla-engine/internal/persistence"
	"github.com/supportstack/sla-engine/internal/repository"
	"github.com/supportstack/sla-engine/internal/service"
	"github.com/supportstack/sla-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	policyRepo := repository.NewCachedPolicyRepository(repository.NewPolicyRepository(pool), redis.Client, logger)
	customerRepo := repository.NewCustomerRepository(pool)
	surveyRepo := repository.NewSurveyRepository(pool)
	dissatisfiedRepo := repository.NewDissatisfiedRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	escalationRepo := repository.NewEscalationEventRepository(pool)

	auditSink := audit.NewPostgresSink(pool)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	locks := service.NewTicketLocks()

	policyService := service.NewPolicyService(policyRepo, logger)
	breachService := service.NewBreachService(service.BreachDependencies{
		TicketRepo:       ticketRepo,
		PolicyService:    policyService,
		EscalationRepo:   escalationRepo,
		NotificationRepo: notificationRepo,
		AuditSink:        auditSink,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Locks:            locks,
		Logger:           logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       ticketRepo,
		CustomerRepo:     customerRepo,
		PolicyService:    policyService,
		BreachService:    breachService,
		NotificationRepo: notificationRepo,
		AuditSink:        auditSink,
		Dispatcher:       dispatcher,
		Locks:            locks,
		Logger:           logger,
	})
	feedbackService := service.NewFeedbackService(service.FeedbackDependencies{
		SurveyRepo:       surveyRepo,
		TicketRepo:       ticketRepo,
		CustomerRepo:     customerRepo,
		DissatisfiedRepo: dissatisfiedRepo,
		NotificationRepo: notificationRepo,
		AuditSink:        auditSink,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})

	notificationWorker := worker.NewNotificationWorker(cfg.Notification, metrics, logger)
	notificationWorker.Start(dispatcher)
	defer notificationWorker.Stop()

	sweepWorker := worker.NewSweepWorker(cfg.Sweep, breachService, ticketRepo, logger)
	if cfg.Sweep.Enabled {
		if err := sweepWorker.Start(); err != nil {
			logger.Fatal("failed to start breach sweep", zap.Error(err))
		}
		defer sweepWorker.Stop()
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, escalationRepo),
		Slas:           handlers.NewSlasHandler(policyService),
		Surveys:        handlers.NewSurveysHandler(feedbackService),
		Sweep:          handlers.NewSweepHandler(sweepWorker),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
