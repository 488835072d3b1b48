package dto

import (
	"time"

	"github.com/supportstack/sla-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerID    string                `json:"customer_id"`
	Subject       string                `json:"subject"`
	Description   string                `json:"description"`
	Type          domain.TicketType     `json:"type"`
	Priority      domain.TicketPriority `json:"priority"`
	Channel       domain.Channel        `json:"channel"`
	AssignedAgent *string               `json:"assigned_agent,omitempty"`
	ServiceType   *domain.ServiceType   `json:"service_type,omitempty"`
}

// UpdateTicketRequest captures the mutable ticket fields; each present
// field maps to its own lifecycle operation.
type UpdateTicketRequest struct {
	Status        *domain.TicketStatus   `json:"status,omitempty"`
	Priority      *domain.TicketPriority `json:"priority,omitempty"`
	AssignedAgent *string                `json:"assigned_agent,omitempty"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID              string                `json:"id"`
	ExternalKey     string                `json:"external_key"`
	CustomerID      string                `json:"customer_id"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	Type            domain.TicketType     `json:"type"`
	Priority        domain.TicketPriority `json:"priority"`
	Status          domain.TicketStatus   `json:"status"`
	Channel         domain.Channel        `json:"channel"`
	AssignedAgent   *string               `json:"assigned_agent,omitempty"`
	PolicyID        *string               `json:"policy_id,omitempty"`
	SLADeadline     *time.Time            `json:"sla_deadline,omitempty"`
	FirstResponseAt *time.Time            `json:"first_response_at,omitempty"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              ticket.ID,
		ExternalKey:     ticket.ExternalKey,
		CustomerID:      ticket.CustomerID,
		Subject:         ticket.Subject,
		Description:     ticket.Description,
		Type:            ticket.Type,
		Priority:        ticket.Priority,
		Status:          ticket.Status,
		Channel:         ticket.Channel,
		AssignedAgent:   ticket.AssignedAgent,
		PolicyID:        ticket.PolicyID,
		SLADeadline:     ticket.SLADeadline,
		FirstResponseAt: ticket.FirstResponseAt,
		ClosedAt:        ticket.ClosedAt,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of domain tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// EscalationEventResponse lists breach firings for a ticket.
type EscalationEventResponse struct {
	ID      string            `json:"id"`
	Kind    domain.BreachKind `json:"kind"`
	FiredAt time.Time         `json:"fired_at"`
	Actions []string          `json:"actions"`
}

// NewEscalationEventResponses maps escalation events.
func NewEscalationEventResponses(items []domain.EscalationEvent) []EscalationEventResponse {
	out := make([]EscalationEventResponse, 0, len(items))
	for _, item := range items {
		actions := make([]string, 0, len(item.ActionsDispatched))
		for _, action := range item.ActionsDispatched {
			actions = append(actions, string(action))
		}
		out = append(out, EscalationEventResponse{
			ID:      item.ID,
			Kind:    item.Kind,
			FiredAt: item.FiredAt,
			Actions: actions,
		})
	}
	return out
}
