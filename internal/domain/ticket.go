package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusEscalated, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Priorities lists all priorities in ascending order of urgency.
var Priorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether the priority is known.
func (p TicketPriority) Valid() bool {
	for _, candidate := range Priorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Next returns the priority one step more urgent. Urgent caps.
func (p TicketPriority) Next() TicketPriority {
	for i, candidate := range Priorities {
		if candidate == p && i+1 < len(Priorities) {
			return Priorities[i+1]
		}
	}
	return p
}

// TicketType categorizes the nature of the request.
type TicketType string

const (
	TicketTypeComplaint TicketType = "COMPLAINT"
	TicketTypeInquiry   TicketType = "INQUIRY"
	TicketTypeRequest   TicketType = "REQUEST"
)

// Valid reports whether the type is known.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeComplaint, TicketTypeInquiry, TicketTypeRequest:
		return true
	}
	return false
}

// Channel identifies how a ticket or survey reached the system.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelWeb      Channel = "WEB"
	ChannelPhone    Channel = "PHONE"
)

// SurveyPromptChannels are tried in order when a ticket closes.
var SurveyPromptChannels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp}

// Ticket is the aggregate for support requests. FirstResponseAt and
// ClosedAt are write-once: set by the state machine, never cleared.
type Ticket struct {
	ID              string
	ExternalKey     string
	TenantID        string
	CustomerID      string
	Subject         string
	Description     string
	Type            TicketType
	Priority        TicketPriority
	Status          TicketStatus
	Channel         Channel
	AssignedAgent   *string
	PolicyID        *string
	SLADeadline     *time.Time
	FirstResponseAt *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}
