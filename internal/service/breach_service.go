package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/audit"
	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/internal/events"
	"github.com/supportstack/sla-engine/internal/observability"
	"github.com/supportstack/sla-engine/internal/repository"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

// BreachService evaluates tickets against their SLA deadlines and fires
// the configured escalation actions at most once per breach kind.
type BreachService struct {
	tickets       repository.TicketRepository
	policies      *PolicyService
	escalations   repository.EscalationEventRepository
	notifications repository.NotificationRepository
	sink          audit.Sink
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	locks         *TicketLocks
	logger        *zap.Logger
}

// BreachDependencies bundles collaborators for the breach service.
type BreachDependencies struct {
	TicketRepo       repository.TicketRepository
	PolicyService    *PolicyService
	EscalationRepo   repository.EscalationEventRepository
	NotificationRepo repository.NotificationRepository
	AuditSink        audit.Sink
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Locks            *TicketLocks
	Logger           *zap.Logger
}

// NewBreachService constructs the service.
func NewBreachService(deps BreachDependencies) *BreachService {
	return &BreachService{
		tickets:       deps.TicketRepo,
		policies:      deps.PolicyService,
		escalations:   deps.EscalationRepo,
		notifications: deps.NotificationRepo,
		sink:          deps.AuditSink,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		locks:         deps.Locks,
		logger:        deps.Logger,
	}
}

// CheckBreaches evaluates one ticket against its policy deadlines and
// dispatches escalation actions for every newly detected breach kind.
// The caller must hold the ticket's lock; the ticket struct is mutated
// in place and persisted here when an action changes it. Safe to call
// repeatedly: already-recorded breach kinds never re-fire.
func (s *BreachService) CheckBreaches(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy, now time.Time) ([]domain.EscalationEvent, error) {
	if ticket == nil || policy == nil {
		return nil, nil
	}

	deadlines, err := ComputeDeadlines(policy, ticket)
	if err != nil {
		if apperrors.IsConfigError(err) {
			s.logger.Warn("policy misconfigured, skipping breach evaluation",
				zap.String("ticket_id", ticket.ID),
				zap.String("policy_id", policy.ID),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	var detected []domain.BreachKind
	if ticket.FirstResponseAt == nil && now.After(deadlines.Response) {
		detected = append(detected, domain.BreachKindResponse)
	}
	if ticket.ClosedAt == nil && now.After(deadlines.Resolution) {
		detected = append(detected, domain.BreachKindResolution)
	}

	var fired []domain.EscalationEvent
	mutated := false
	for _, kind := range detected {
		exists, err := s.escalations.Exists(ctx, ticket.TenantID, ticket.ID, kind)
		if err != nil {
			return fired, err
		}
		if exists {
			continue
		}

		actions := policy.Escalation.OnResponseBreach
		if kind == domain.BreachKindResolution {
			actions = policy.Escalation.OnResolutionBreach
		}

		dispatched := make([]domain.EscalationAction, 0, len(actions))
		for _, action := range actions {
			changed, err := s.dispatchAction(ctx, ticket, policy, kind, action, now)
			if err != nil {
				// one failing action must not block the rest
				s.logger.Error("escalation action failed",
					zap.String("ticket_id", ticket.ID),
					zap.String("kind", string(kind)),
					zap.String("action", string(action)),
					zap.Error(err))
				continue
			}
			mutated = mutated || changed
			dispatched = append(dispatched, action)
			s.metrics.RecordAction(string(action))
		}

		event := domain.EscalationEvent{
			ID:                uuid.NewString(),
			TenantID:          ticket.TenantID,
			TicketID:          ticket.ID,
			Kind:              kind,
			FiredAt:           now,
			ActionsDispatched: dispatched,
		}
		if err := s.escalations.Create(ctx, &event); err != nil {
			return fired, err
		}
		fired = append(fired, event)
		s.metrics.RecordBreach(string(kind))

		s.publish(ctx, events.Event{
			Type:     events.EventSLABreached,
			TenantID: ticket.TenantID,
			TicketID: ticket.ID,
			Actor:    domain.SystemActor,
			Payload: events.SLABreachedPayload{
				Kind:              kind,
				PolicyID:          policy.ID,
				ActionsDispatched: dispatched,
			},
		})
	}

	if mutated {
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return fired, err
		}
	}
	return fired, nil
}

// CheckAllOpenTicketsForBreach sweeps every open ticket with an SLA
// commitment. Idempotent: the scheduler may invoke it as often as it
// likes. Returns the number of escalation events fired.
func (s *BreachService) CheckAllOpenTicketsForBreach(ctx context.Context, tenantID string, now time.Time) (int, error) {
	candidates, err := s.tickets.ListOpenWithPolicy(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range candidates {
		fired, err := s.checkOne(ctx, tenantID, candidates[i].ID, now)
		if err != nil {
			s.logger.Error("sweep breach check failed",
				zap.String("ticket_id", candidates[i].ID),
				zap.Error(err))
			continue
		}
		total += fired
	}
	return total, nil
}

func (s *BreachService) checkOne(ctx context.Context, tenantID, ticketID string, now time.Time) (int, error) {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	// reload under the lock: the listing snapshot may be stale
	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if ticket.PolicyID == nil || ticket.Status == domain.TicketStatusClosed {
		return 0, nil
	}

	policy, err := s.policies.GetByID(ctx, tenantID, *ticket.PolicyID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	fired, err := s.CheckBreaches(ctx, ticket, policy, now)
	return len(fired), err
}

func (s *BreachService) dispatchAction(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy, kind domain.BreachKind, action domain.EscalationAction, now time.Time) (bool, error) {
	changed := false
	var err error

	switch action {
	case domain.ActionMarkEscalated:
		if ticket.Status != domain.TicketStatusEscalated && ticket.Status != domain.TicketStatusClosed {
			ticket.Status = domain.TicketStatusEscalated
			if ticket.FirstResponseAt == nil {
				stamp := now
				ticket.FirstResponseAt = &stamp
			}
			changed = true
		}
	case domain.ActionIncreasePriority:
		if next := ticket.Priority.Next(); next != ticket.Priority {
			ticket.Priority = next
			changed = true
		}
	case domain.ActionReassignHigherRank:
		if policy.EscalateToRole != nil {
			ticket.AssignedAgent = policy.EscalateToRole
			changed = true
		}
	case domain.ActionNotifyManager:
		err = s.notify(ctx, ticket, domain.AudienceManager, kind, now)
	case domain.ActionNotifyCustomer:
		err = s.notify(ctx, ticket, domain.AudienceCustomer, kind, now)
	default:
		err = fmt.Errorf("unknown escalation action %q", action)
	}
	if err != nil {
		return false, err
	}

	s.record(ctx, audit.Entry{
		Entity:   "tickets",
		EntityID: ticket.ID,
		Action:   "escalation_action",
		Changes: map[string]any{
			"kind":   string(kind),
			"action": string(action),
		},
		ActorID:  domain.SystemActor.ID,
		TenantID: ticket.TenantID,
		At:       now,
	})
	return changed, nil
}

func (s *BreachService) notify(ctx context.Context, ticket *domain.Ticket, audience domain.NotificationAudience, kind domain.BreachKind, now time.Time) error {
	notification := &domain.Notification{
		ID:       uuid.NewString(),
		TenantID: ticket.TenantID,
		Audience: audience,
		Type:     domain.NotificationTypeSLABreach,
		Message:  breachMessage(ticket, kind),
		At:       now,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventNotificationDispatched,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Actor:    domain.SystemActor,
		Payload: events.NotificationDispatchedPayload{
			NotificationID: notification.ID,
			Audience:       notification.Audience,
			Type:           notification.Type,
			Message:        notification.Message,
		},
	})
	return nil
}

func breachMessage(ticket *domain.Ticket, kind domain.BreachKind) string {
	return fmt.Sprintf("SLA %s deadline breached for ticket %s (%s)", kind, ticket.ExternalKey, ticket.Subject)
}

func (s *BreachService) record(ctx context.Context, entry audit.Entry) {
	if err := s.sink.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", zap.String("entity_id", entry.EntityID), zap.Error(err))
	}
}

func (s *BreachService) publish(ctx context.Context, event events.Event) {
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
