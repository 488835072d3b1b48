package events

import (
	"time"

	"github.com/supportstack/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketPriorityChanged  EventType = "ticket_priority_changed"
	EventTicketReassigned       EventType = "ticket_reassigned"
	EventTicketClosed           EventType = "ticket_closed"
	EventSLABreached            EventType = "sla_breached"
	EventSurveySubmitted        EventType = "survey_submitted"
	EventNotificationDispatched EventType = "notification_dispatched"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TenantID  string       `json:"tenant_id"`
	TicketID  string       `json:"ticket_id,omitempty"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID  string                `json:"customer_id"`
	Type        domain.TicketType     `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	Subject     string                `json:"subject"`
	SLADeadline *time.Time            `json:"sla_deadline,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	OldAgent *string `json:"old_agent,omitempty"`
	NewAgent *string `json:"new_agent,omitempty"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	CustomerID string    `json:"customer_id"`
	ClosedAt   time.Time `json:"closed_at"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Kind              domain.BreachKind         `json:"kind"`
	PolicyID          string                    `json:"policy_id"`
	ActionsDispatched []domain.EscalationAction `json:"actions_dispatched"`
}

// SurveySubmittedPayload payload.
type SurveySubmittedPayload struct {
	SurveyID   string `json:"survey_id"`
	CustomerID string `json:"customer_id"`
	Rating     int    `json:"rating"`
}

// NotificationDispatchedPayload payload.
type NotificationDispatchedPayload struct {
	NotificationID string                      `json:"notification_id"`
	Audience       domain.NotificationAudience `json:"audience"`
	Type           domain.NotificationType     `json:"notification_type"`
	Message        string                      `json:"message"`
}
