package domain

import "time"

// BreachKind names the deadline that was missed.
type BreachKind string

const (
	BreachKindResponse   BreachKind = "RESPONSE"
	BreachKindResolution BreachKind = "RESOLUTION"
)

// EscalationEvent records that a breach kind fired for a ticket. One
// event per (ticket, kind) ever; this backs the at-most-once guarantee.
type EscalationEvent struct {
	ID                string
	TenantID          string
	TicketID          string
	Kind              BreachKind
	FiredAt           time.Time
	ActionsDispatched []EscalationAction
}
