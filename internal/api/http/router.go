package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportstack/sla-engine/internal/api/http/handlers"
	"github.com/supportstack/sla-engine/internal/auth"
	"github.com/supportstack/sla-engine/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Slas           *handlers.SlasHandler
	Surveys        *handlers.SurveysHandler
	Sweep          *handlers.SweepHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/escalations", cfg.Tickets.ListEscalations)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleSupervisor, domain.RoleAdmin), cfg.Tickets.DeleteTicket)

	slas := api.Group("/slas", auth.RequireRole(domain.RoleSupervisor, domain.RoleAdmin))
	slas.Post("", cfg.Slas.CreatePolicy)
	slas.Get("", cfg.Slas.ListPolicies)
	slas.Get("/:id", cfg.Slas.GetPolicy)

	feedbacks := api.Group("/feedbacks")
	feedbacks.Post("/surveys", cfg.Surveys.SubmitSurvey)
	feedbacks.Get("/surveys/stats", auth.RequireRole(domain.RoleSupervisor, domain.RoleAdmin), cfg.Surveys.Stats)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Post("/sweep", cfg.Sweep.Run)
	admin.Get("/metrics", cfg.Metrics.Snapshot)
}
