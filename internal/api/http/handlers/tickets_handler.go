package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supportstack/sla-engine/internal/api/dto"
	"github.com/supportstack/sla-engine/internal/auth"
	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/internal/repository"
	"github.com/supportstack/sla-engine/internal/service"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	escalations repository.EscalationEventRepository
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, escalations repository.EscalationEventRepository) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, escalations: escalations}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		CustomerID:    req.CustomerID,
		Subject:       req.Subject,
		Description:   req.Description,
		Type:          req.Type,
		Priority:      req.Priority,
		Channel:       req.Channel,
		AssignedAgent: req.AssignedAgent,
		ServiceType:   req.ServiceType,
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.Actor(), principal.TenantID, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "ticket created", dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTicketFilter(c)
	tickets, err := h.tickets.ListTickets(c.UserContext(), principal.TenantID, filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "tickets listed", dto.NewTicketResponses(tickets))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ticket found", dto.NewTicketResponse(ticket))
}

// ListEscalations GET /tickets/:id/escalations.
func (h *TicketsHandler) ListEscalations(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	// confirm the ticket exists before listing its events
	if _, err := h.tickets.GetTicket(c.UserContext(), principal.TenantID, c.Params("id")); err != nil {
		return err
	}
	events, err := h.escalations.ListByTicket(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "escalations listed", dto.NewEscalationEventResponses(events))
}

// UpdateTicket PUT /tickets/:id. Status, priority, and assignment
// changes are applied in that order, each through its own lifecycle
// operation.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == nil && req.Priority == nil && req.AssignedAgent == nil {
		return apperrors.NewValidationError("nothing to update", []apperrors.FieldError{
			{Path: "status", Message: "at least one of status, priority, assigned_agent is required"},
		})
	}

	actor := principal.Actor()
	ticketID := c.Params("id")
	now := time.Now()

	var ticket *domain.Ticket
	var err error
	if req.Status != nil {
		ticket, err = h.tickets.Transition(c.UserContext(), actor, principal.TenantID, ticketID, *req.Status, now)
		if err != nil {
			return err
		}
	}
	if req.Priority != nil {
		ticket, err = h.tickets.UpdatePriority(c.UserContext(), actor, principal.TenantID, ticketID, *req.Priority, now)
		if err != nil {
			return err
		}
	}
	if req.AssignedAgent != nil {
		ticket, err = h.tickets.Reassign(c.UserContext(), actor, principal.TenantID, ticketID, req.AssignedAgent, now)
		if err != nil {
			return err
		}
	}
	return respond(c, http.StatusOK, "ticket updated", dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.tickets.SoftDelete(c.UserContext(), principal.Actor(), principal.TenantID, c.Params("id"), time.Now()); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "ticket deleted", nil)
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if raw := c.Query("priority"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.CustomerID = &customerID
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			filter.Offset = offset
		}
	}
	return filter
}
