package service

import (
	"context"
	"fmt"
	"math"
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

// QualityTeamAgent receives every escalation ticket born from a
// negative survey.
const QualityTeamAgent = "Quality Team"

// FeedbackService ingests CSAT surveys and runs the negative-score
// escalation workflow. The survey write always stands on its own: the
// side workflow is fire-and-log, never transactional.
type FeedbackService struct {
	surveys       repository.SurveyRepository
	tickets       repository.TicketRepository
	customers     repository.CustomerRepository
	dissatisfied  repository.DissatisfiedRepository
	notifications repository.NotificationRepository
	sink          audit.Sink
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// FeedbackDependencies bundles collaborators for the feedback service.
type FeedbackDependencies struct {
	SurveyRepo       repository.SurveyRepository
	TicketRepo       repository.TicketRepository
	CustomerRepo     repository.CustomerRepository
	DissatisfiedRepo repository.DissatisfiedRepository
	NotificationRepo repository.NotificationRepository
	AuditSink        audit.Sink
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewFeedbackService constructs the service.
func NewFeedbackService(deps FeedbackDependencies) *FeedbackService {
	return &FeedbackService{
		surveys:       deps.SurveyRepo,
		tickets:       deps.TicketRepo,
		customers:     deps.CustomerRepo,
		dissatisfied:  deps.DissatisfiedRepo,
		notifications: deps.NotificationRepo,
		sink:          deps.AuditSink,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// SurveyInput describes a CSAT submission.
type SurveyInput struct {
	TicketID   string
	CustomerID string
	Rating     int
	Comment    string
	Channel    domain.Channel
}

// SubmitSurvey persists a survey for a ticket. Duplicate submissions
// for the same ticket are accepted as distinct records. A rating of 2
// or below triggers the escalation workflow as a best-effort side
// effect that never fails the submission.
func (s *FeedbackService) SubmitSurvey(ctx context.Context, actor domain.Actor, tenantID string, input SurveyInput) (*domain.Survey, error) {
	if fields := validateSurveyInput(&input); len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid survey", fields)
	}

	ticket, err := s.tickets.GetByID(ctx, tenantID, input.TicketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}
	customer, err := s.customers.GetByID(ctx, tenantID, input.CustomerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("customer")
		}
		return nil, err
	}

	now := time.Now()
	survey := &domain.Survey{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		TicketID:    ticket.ID,
		CustomerID:  customer.ID,
		Rating:      input.Rating,
		Comment:     strings.TrimSpace(input.Comment),
		Channel:     input.Channel,
		Agent:       ticket.AssignedAgent,
		SubmittedAt: now,
	}
	if err := s.surveys.Create(ctx, survey); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Entity:   "surveys",
		EntityID: survey.ID,
		Action:   "create",
		Changes:  map[string]any{"ticket_id": ticket.ID, "rating": survey.Rating},
		ActorID:  actor.ID,
		TenantID: tenantID,
		At:       now,
	})
	s.publish(ctx, events.Event{
		Type:     events.EventSurveySubmitted,
		TenantID: tenantID,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.SurveySubmittedPayload{
			SurveyID:   survey.ID,
			CustomerID: customer.ID,
			Rating:     survey.Rating,
		},
	})

	if survey.Negative() {
		s.escalateNegative(ctx, ticket, survey, now)
	}
	return survey, nil
}

// escalateNegative runs the three follow-up steps for a negative
// survey. Each step is attempted independently; partial failure leaves
// the others and the survey itself untouched.
func (s *FeedbackService) escalateNegative(ctx context.Context, origin *domain.Ticket, survey *domain.Survey, now time.Time) {
	if err := s.createEscalationTicket(ctx, origin, survey, now); err != nil {
		s.logger.Error("negative survey: escalation ticket failed",
			zap.String("survey_id", survey.ID), zap.Error(err))
	}
	if err := s.notifySupervisor(ctx, origin, survey, now); err != nil {
		s.logger.Error("negative survey: supervisor notification failed",
			zap.String("survey_id", survey.ID), zap.Error(err))
	}
	if err := s.recordDissatisfaction(ctx, survey, now); err != nil {
		s.logger.Error("negative survey: dissatisfaction record failed",
			zap.String("survey_id", survey.ID), zap.Error(err))
	}
}

func (s *FeedbackService) createEscalationTicket(ctx context.Context, origin *domain.Ticket, survey *domain.Survey, now time.Time) error {
	agent := QualityTeamAgent
	deadline := now.Add(24 * time.Hour)
	firstResponse := now

	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		ExternalKey:   generateTicketKey(),
		TenantID:      origin.TenantID,
		CustomerID:    origin.CustomerID,
		Subject:       fmt.Sprintf("Follow-up on negative feedback for %s", origin.ExternalKey),
		Description:   fmt.Sprintf("Customer rated ticket %s with %d/5. Immediate review required.", origin.ExternalKey, survey.Rating),
		Type:          domain.TicketTypeComplaint,
		Priority:      domain.TicketPriorityUrgent,
		Status:        domain.TicketStatusEscalated,
		Channel:       survey.Channel,
		AssignedAgent: &agent,
		SLADeadline:   &deadline,
		// the ticket is born past Open, so the first-response stamp
		// must exist from the start
		FirstResponseAt: &firstResponse,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		Entity:   "tickets",
		EntityID: ticket.ID,
		Action:   "create_from_negative_survey",
		Changes:  map[string]any{"origin_ticket_id": origin.ID, "survey_id": survey.ID},
		ActorID:  domain.SystemActor.ID,
		TenantID: origin.TenantID,
		At:       now,
	})
	return nil
}

func (s *FeedbackService) notifySupervisor(ctx context.Context, origin *domain.Ticket, survey *domain.Survey, now time.Time) error {
	notification := &domain.Notification{
		ID:       uuid.NewString(),
		TenantID: origin.TenantID,
		Audience: domain.AudienceSupervisor,
		Type:     domain.NotificationTypeLowSatisfaction,
		Message:  fmt.Sprintf("Customer %s rated ticket %s with %d/5", survey.CustomerID, origin.ExternalKey, survey.Rating),
		At:       now,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventNotificationDispatched,
		TenantID: origin.TenantID,
		TicketID: origin.ID,
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

func (s *FeedbackService) recordDissatisfaction(ctx context.Context, survey *domain.Survey, now time.Time) error {
	return s.dissatisfied.Create(ctx, &domain.DissatisfiedCustomerRecord{
		ID:         uuid.NewString(),
		TenantID:   survey.TenantID,
		CustomerID: survey.CustomerID,
		SurveyID:   survey.ID,
		MonthKey:   now.Format(domain.MonthKeyFormat),
		AddedAt:    now,
	})
}

// AgentRating aggregates survey scores per agent.
type AgentRating struct {
	Agent         string  `json:"agent"`
	AverageRating float64 `json:"average_rating"`
	Surveys       int     `json:"surveys"`
}

// SurveyStats are pure read projections over surveys, tickets, and
// dissatisfaction records.
type SurveyStats struct {
	TotalSurveys          int          `json:"total_surveys"`
	AverageRating         float64      `json:"average_rating"`
	TopAgent              *AgentRating `json:"top_agent,omitempty"`
	BottomAgent           *AgentRating `json:"bottom_agent,omitempty"`
	ResponseRatePercent   int          `json:"response_rate_percent"`
	DissatisfiedThisMonth int          `json:"dissatisfied_this_month"`
}

// Stats computes the reporting aggregates for the month containing now.
// A month with zero closed tickets yields a zero response rate, never a
// division error.
func (s *FeedbackService) Stats(ctx context.Context, tenantID string, now time.Time) (*SurveyStats, error) {
	surveys, err := s.surveys.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &SurveyStats{TotalSurveys: len(surveys)}

	if len(surveys) > 0 {
		sum := 0
		for _, survey := range surveys {
			sum += survey.Rating
		}
		stats.AverageRating = math.Round(float64(sum)/float64(len(surveys))*100) / 100
	}

	stats.TopAgent, stats.BottomAgent = rankAgents(surveys)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonth := monthStart.AddDate(0, 1, 0)

	submitted, err := s.surveys.CountSubmittedBetween(ctx, tenantID, monthStart, nextMonth)
	if err != nil {
		return nil, err
	}
	closed, err := s.tickets.CountClosedBetween(ctx, tenantID, monthStart, nextMonth)
	if err != nil {
		return nil, err
	}
	if closed > 0 {
		stats.ResponseRatePercent = int(math.Round(float64(submitted) / float64(closed) * 100))
	}

	dissatisfied, err := s.dissatisfied.CountByMonthKey(ctx, tenantID, now.Format(domain.MonthKeyFormat))
	if err != nil {
		return nil, err
	}
	stats.DissatisfiedThisMonth = dissatisfied

	return stats, nil
}

// rankAgents returns the best and worst agent by average rating. Ties
// break by insertion order: the agent seen first wins.
func rankAgents(surveys []domain.Survey) (*AgentRating, *AgentRating) {
	type bucket struct {
		sum   int
		count int
	}
	order := []string{}
	buckets := map[string]*bucket{}
	for _, survey := range surveys {
		if survey.Agent == nil || *survey.Agent == "" {
			continue
		}
		agent := *survey.Agent
		b, ok := buckets[agent]
		if !ok {
			b = &bucket{}
			buckets[agent] = b
			order = append(order, agent)
		}
		b.sum += survey.Rating
		b.count++
	}
	if len(order) == 0 {
		return nil, nil
	}

	var top, bottom *AgentRating
	for _, agent := range order {
		b := buckets[agent]
		avg := math.Round(float64(b.sum)/float64(b.count)*100) / 100
		rating := &AgentRating{Agent: agent, AverageRating: avg, Surveys: b.count}
		if top == nil || rating.AverageRating > top.AverageRating {
			top = rating
		}
		if bottom == nil || rating.AverageRating < bottom.AverageRating {
			bottom = rating
		}
	}
	return top, bottom
}

func validateSurveyInput(input *SurveyInput) []apperrors.FieldError {
	var fields []apperrors.FieldError
	if strings.TrimSpace(input.TicketID) == "" {
		fields = append(fields, apperrors.FieldError{Path: "ticket_id", Message: "required"})
	}
	if strings.TrimSpace(input.CustomerID) == "" {
		fields = append(fields, apperrors.FieldError{Path: "customer_id", Message: "required"})
	}
	if input.Rating < 1 || input.Rating > 5 {
		fields = append(fields, apperrors.FieldError{Path: "rating", Message: "must be between 1 and 5"})
	}
	if input.Channel == "" {
		input.Channel = domain.ChannelWeb
	}
	return fields
}

func (s *FeedbackService) record(ctx context.Context, entry audit.Entry) {
	if err := s.sink.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", zap.String("entity_id", entry.EntityID), zap.Error(err))
	}
}

func (s *FeedbackService) publish(ctx context.Context, event events.Event) {
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
