package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/audit"
	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/internal/events"
	"github.com/supportstack/sla-engine/internal/repository"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

// TicketService owns the ticket lifecycle state machine. All timestamp
// invariants (firstResponseAt/closedAt write-once) are enforced here;
// nothing else mutates ticket status.
type TicketService struct {
	tickets       repository.TicketRepository
	customers     repository.CustomerRepository
	policies      *PolicyService
	breaches      *BreachService
	notifications repository.NotificationRepository
	sink          audit.Sink
	dispatcher    events.Dispatcher
	locks         *TicketLocks
	logger        *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	CustomerRepo     repository.CustomerRepository
	PolicyService    *PolicyService
	BreachService    *BreachService
	NotificationRepo repository.NotificationRepository
	AuditSink        audit.Sink
	Dispatcher       events.Dispatcher
	Locks            *TicketLocks
	Logger           *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:       deps.TicketRepo,
		customers:     deps.CustomerRepo,
		policies:      deps.PolicyService,
		breaches:      deps.BreachService,
		notifications: deps.NotificationRepo,
		sink:          deps.AuditSink,
		dispatcher:    deps.Dispatcher,
		locks:         deps.Locks,
		logger:        deps.Logger,
	}
}

// TicketCreateInput describes ticket intake payload.
type TicketCreateInput struct {
	CustomerID    string
	Subject       string
	Description   string
	Type          domain.TicketType
	Priority      domain.TicketPriority
	Channel       domain.Channel
	AssignedAgent *string
	ServiceType   *domain.ServiceType
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusEscalated, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusEscalated, domain.TicketStatusClosed},
	domain.TicketStatusEscalated:  {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket performs intake: matches the SLA policy, stamps the
// resolution deadline, and persists the ticket in the Open state. A
// ticket with no matching policy carries no SLA commitment at all.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, tenantID string, input TicketCreateInput) (*domain.Ticket, error) {
	if fields := validateTicketInput(&input); len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", fields)
	}

	customer, err := s.customers.GetByID(ctx, tenantID, input.CustomerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("customer")
		}
		return nil, err
	}

	now := time.Now()
	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		ExternalKey:   generateTicketKey(),
		TenantID:      tenantID,
		CustomerID:    customer.ID,
		Subject:       strings.TrimSpace(input.Subject),
		Description:   strings.TrimSpace(input.Description),
		Type:          input.Type,
		Priority:      input.Priority,
		Status:        domain.TicketStatusOpen,
		Channel:       input.Channel,
		AssignedAgent: input.AssignedAgent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	serviceType := ServiceTypeFor(ticket, customer)
	if input.ServiceType != nil {
		serviceType = *input.ServiceType
	}

	policy, err := s.policies.MatchPolicy(ctx, tenantID, serviceType, customer)
	if err != nil {
		return nil, err
	}
	if policy != nil {
		deadlines, err := ComputeDeadlines(policy, ticket)
		if err != nil {
			// malformed policy: this ticket proceeds without an SLA
			s.logger.Warn("policy misconfigured at intake",
				zap.String("policy_id", policy.ID),
				zap.Error(err))
		} else {
			policyID := policy.ID
			resolution := deadlines.Resolution
			ticket.PolicyID = &policyID
			ticket.SLADeadline = &resolution
		}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Entity:   "tickets",
		EntityID: ticket.ID,
		Action:   "create",
		Changes:  map[string]any{"status": string(ticket.Status), "priority": string(ticket.Priority)},
		ActorID:  actor.ID,
		TenantID: tenantID,
		At:       now,
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TenantID: tenantID,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			CustomerID:  ticket.CustomerID,
			Type:        ticket.Type,
			Priority:    ticket.Priority,
			Subject:     ticket.Subject,
			SLADeadline: ticket.SLADeadline,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket within the tenant scope.
func (s *TicketService) GetTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, tenantID, filter)
}

// Transition moves a ticket to newStatus at the given timestamp.
// firstResponseAt is stamped on the first departure from Open and
// closedAt on closure, both in the same atomic update. Closed is
// terminal. Every transition triggers a synchronous breach check.
func (s *TicketService) Transition(ctx context.Context, actor domain.Actor, tenantID, ticketID string, newStatus domain.TicketStatus, ts time.Time) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket", []apperrors.FieldError{
			{Path: "status", Message: "unknown status"},
		})
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}

	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition("ticket is closed")
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot transition from %s to %s", ticket.Status, newStatus))
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus != domain.TicketStatusOpen && ticket.FirstResponseAt == nil {
		stamp := ts
		ticket.FirstResponseAt = &stamp
	}
	closing := newStatus == domain.TicketStatusClosed && ticket.ClosedAt == nil
	if closing {
		stamp := ts
		ticket.ClosedAt = &stamp
	}
	ticket.UpdatedAt = ts

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Entity:   "tickets",
		EntityID: ticket.ID,
		Action:   "status_change",
		Changes:  map[string]any{"old": string(oldStatus), "new": string(newStatus)},
		ActorID:  actor.ID,
		TenantID: tenantID,
		At:       ts,
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TenantID: tenantID,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus},
	})

	if closing {
		s.onClosed(ctx, actor, ticket, ts)
	}

	s.checkBreachesLocked(ctx, ticket, ts)
	return ticket, nil
}

// UpdatePriority changes ticket priority and triggers a breach check.
func (s *TicketService) UpdatePriority(ctx context.Context, actor domain.Actor, tenantID, ticketID string, newPriority domain.TicketPriority, ts time.Time) (*domain.Ticket, error) {
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket", []apperrors.FieldError{
			{Path: "priority", Message: "unknown priority"},
		})
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition("ticket is closed")
	}

	oldPriority := ticket.Priority
	if oldPriority != newPriority {
		ticket.Priority = newPriority
		ticket.UpdatedAt = ts
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
		s.record(ctx, audit.Entry{
			Entity:   "tickets",
			EntityID: ticket.ID,
			Action:   "priority_change",
			Changes:  map[string]any{"old": string(oldPriority), "new": string(newPriority)},
			ActorID:  actor.ID,
			TenantID: tenantID,
			At:       ts,
		})
		s.publish(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TenantID: tenantID,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload:  events.TicketPriorityChangedPayload{OldPriority: oldPriority, NewPriority: newPriority},
		})
	}

	s.checkBreachesLocked(ctx, ticket, ts)
	return ticket, nil
}

// Reassign changes the assigned agent and triggers a breach check.
func (s *TicketService) Reassign(ctx context.Context, actor domain.Actor, tenantID, ticketID string, agent *string, ts time.Time) (*domain.Ticket, error) {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidTransition("ticket is closed")
	}

	oldAgent := ticket.AssignedAgent
	ticket.AssignedAgent = agent
	ticket.UpdatedAt = ts
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.record(ctx, audit.Entry{
		Entity:   "tickets",
		EntityID: ticket.ID,
		Action:   "reassign",
		Changes:  map[string]any{"old": deref(oldAgent), "new": deref(agent)},
		ActorID:  actor.ID,
		TenantID: tenantID,
		At:       ts,
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TenantID: tenantID,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketReassignedPayload{OldAgent: oldAgent, NewAgent: agent},
	})

	s.checkBreachesLocked(ctx, ticket, ts)
	return ticket, nil
}

// SoftDelete marks a ticket deleted without removing the row.
func (s *TicketService) SoftDelete(ctx context.Context, actor domain.Actor, tenantID, ticketID string, ts time.Time) error {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	if err := s.tickets.SoftDelete(ctx, tenantID, ticketID, ts); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket")
		}
		return err
	}
	s.record(ctx, audit.Entry{
		Entity:   "tickets",
		EntityID: ticketID,
		Action:   "soft_delete",
		ActorID:  actor.ID,
		TenantID: tenantID,
		At:       ts,
	})
	return nil
}

// onClosed emits the closure event and dispatches the survey prompts:
// one attempt per channel, each a distinct audit entry, none fatal.
func (s *TicketService) onClosed(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, ts time.Time) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketClosedPayload{CustomerID: ticket.CustomerID, ClosedAt: ts},
	})

	for _, channel := range domain.SurveyPromptChannels {
		notification := &domain.Notification{
			ID:       uuid.NewString(),
			TenantID: ticket.TenantID,
			Audience: domain.AudienceCustomer,
			Type:     domain.NotificationTypeSurveyPrompt,
			Message:  fmt.Sprintf("How did we do on ticket %s? (%s)", ticket.ExternalKey, channel),
			At:       ts,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			s.logger.Warn("survey prompt dispatch failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("channel", string(channel)),
				zap.Error(err))
			continue
		}
		s.publish(ctx, events.Event{
			Type:     events.EventNotificationDispatched,
			TenantID: ticket.TenantID,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.NotificationDispatchedPayload{
				NotificationID: notification.ID,
				Audience:       notification.Audience,
				Type:           notification.Type,
				Message:        notification.Message,
			},
		})
		s.record(ctx, audit.Entry{
			Entity:   "tickets",
			EntityID: ticket.ID,
			Action:   "survey_prompt",
			Changes:  map[string]any{"channel": string(channel)},
			ActorID:  actor.ID,
			TenantID: ticket.TenantID,
			At:       ts,
		})
	}
}

// checkBreachesLocked runs the breach detector while the caller already
// holds the ticket lock. Detection failures never fail the mutation
// that triggered them.
func (s *TicketService) checkBreachesLocked(ctx context.Context, ticket *domain.Ticket, now time.Time) {
	if s.breaches == nil || ticket.PolicyID == nil {
		return
	}
	policy, err := s.policies.GetByID(ctx, ticket.TenantID, *ticket.PolicyID)
	if err != nil {
		s.logger.Warn("policy lookup for breach check failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return
	}
	if _, err := s.breaches.CheckBreaches(ctx, ticket, policy, now); err != nil {
		s.logger.Error("breach check failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func validateTicketInput(input *TicketCreateInput) []apperrors.FieldError {
	var fields []apperrors.FieldError
	if strings.TrimSpace(input.CustomerID) == "" {
		fields = append(fields, apperrors.FieldError{Path: "customer_id", Message: "required"})
	}
	if strings.TrimSpace(input.Subject) == "" {
		fields = append(fields, apperrors.FieldError{Path: "subject", Message: "required"})
	}
	if !input.Type.Valid() {
		fields = append(fields, apperrors.FieldError{Path: "type", Message: "unknown type"})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	} else if !input.Priority.Valid() {
		fields = append(fields, apperrors.FieldError{Path: "priority", Message: "unknown priority"})
	}
	if input.Channel == "" {
		input.Channel = domain.ChannelWeb
	}
	if input.ServiceType != nil && !input.ServiceType.Valid() {
		fields = append(fields, apperrors.FieldError{Path: "service_type", Message: "unknown service type"})
	}
	return fields
}

func generateTicketKey() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func deref(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}

func (s *TicketService) record(ctx context.Context, entry audit.Entry) {
	if err := s.sink.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", zap.String("entity_id", entry.EntityID), zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
