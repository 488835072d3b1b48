package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/audit"
	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/internal/events"
	"github.com/supportstack/sla-engine/internal/observability"
	"github.com/supportstack/sla-engine/internal/repository"
)

type fakeTicketRepo struct {
	mu         sync.Mutex
	tickets    map[string]*domain.Ticket
	failCreate error
	failUpdate error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	return &clone
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.TenantID != tenantID || ticket.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (r *fakeTicketRepo) List(_ context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.TenantID != tenantID || ticket.DeletedAt != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, *cloneTicket(ticket))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r *fakeTicketRepo) ListOpenWithPolicy(_ context.Context, tenantID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.TenantID != tenantID || ticket.DeletedAt != nil {
			continue
		}
		if ticket.Status == domain.TicketStatusClosed || ticket.PolicyID == nil {
			continue
		}
		out = append(out, *cloneTicket(ticket))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTicketRepo) ListTenantIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, ticket := range r.tickets {
		if ticket.DeletedAt != nil || ticket.Status == domain.TicketStatusClosed {
			continue
		}
		if !seen[ticket.TenantID] {
			seen[ticket.TenantID] = true
			out = append(out, ticket.TenantID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeTicketRepo) CountClosedBetween(_ context.Context, tenantID string, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ticket := range r.tickets {
		if ticket.TenantID != tenantID || ticket.DeletedAt != nil || ticket.ClosedAt == nil {
			continue
		}
		if !ticket.ClosedAt.Before(from) && ticket.ClosedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) SoftDelete(_ context.Context, tenantID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.TenantID != tenantID || ticket.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	stamp := at
	ticket.DeletedAt = &stamp
	return nil
}

type fakePolicyRepo struct {
	mu       sync.Mutex
	policies []domain.SlaPolicy
}

func (r *fakePolicyRepo) Create(_ context.Context, policy *domain.SlaPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *fakePolicyRepo) GetByID(_ context.Context, tenantID, id string) (*domain.SlaPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].ID == id && r.policies[i].TenantID == tenantID {
			clone := r.policies[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePolicyRepo) List(_ context.Context, tenantID string) ([]domain.SlaPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SlaPolicy
	for _, policy := range r.policies {
		if policy.TenantID == tenantID {
			out = append(out, policy)
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) ListActiveByService(_ context.Context, tenantID string, serviceType domain.ServiceType) ([]domain.SlaPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SlaPolicy
	for _, policy := range r.policies {
		if policy.TenantID == tenantID && policy.ServiceType == serviceType && policy.Active {
			out = append(out, policy)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type fakeCustomerRepo struct {
	customers map[string]*domain.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*domain.Customer)}
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Customer, error) {
	customer, ok := r.customers[id]
	if !ok || customer.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	clone := *customer
	return &clone, nil
}

type fakeSurveyRepo struct {
	mu      sync.Mutex
	surveys []domain.Survey
}

func (r *fakeSurveyRepo) Create(_ context.Context, survey *domain.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surveys = append(r.surveys, *survey)
	return nil
}

func (r *fakeSurveyRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Survey
	for _, survey := range r.surveys {
		if survey.TenantID == tenantID {
			out = append(out, survey)
		}
	}
	return out, nil
}

func (r *fakeSurveyRepo) CountSubmittedBetween(_ context.Context, tenantID string, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, survey := range r.surveys {
		if survey.TenantID != tenantID {
			continue
		}
		if !survey.SubmittedAt.Before(from) && survey.SubmittedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

type fakeDissatisfiedRepo struct {
	mu      sync.Mutex
	records []domain.DissatisfiedCustomerRecord
}

func (r *fakeDissatisfiedRepo) Create(_ context.Context, record *domain.DissatisfiedCustomerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeDissatisfiedRepo) CountByMonthKey(_ context.Context, tenantID, monthKey string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, record := range r.records {
		if record.TenantID == tenantID && record.MonthKey == monthKey {
			count++
		}
	}
	return count, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []domain.Notification
	failCreate    error
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeNotificationRepo) ofType(kind domain.NotificationType) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, notification := range r.notifications {
		if notification.Type == kind {
			out = append(out, notification)
		}
	}
	return out
}

type fakeEscalationRepo struct {
	mu     sync.Mutex
	events map[string]domain.EscalationEvent
}

func newFakeEscalationRepo() *fakeEscalationRepo {
	return &fakeEscalationRepo{events: make(map[string]domain.EscalationEvent)}
}

func escalationKey(ticketID string, kind domain.BreachKind) string {
	return ticketID + "|" + string(kind)
}

func (r *fakeEscalationRepo) Create(_ context.Context, event *domain.EscalationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := escalationKey(event.TicketID, event.Kind)
	if _, ok := r.events[key]; ok {
		return nil
	}
	r.events[key] = *event
	return nil
}

func (r *fakeEscalationRepo) Exists(_ context.Context, tenantID, ticketID string, kind domain.BreachKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[escalationKey(ticketID, kind)]
	return ok && event.TenantID == tenantID, nil
}

func (r *fakeEscalationRepo) ListByTicket(_ context.Context, tenantID, ticketID string) ([]domain.EscalationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EscalationEvent
	for _, event := range r.events {
		if event.TenantID == tenantID && event.TicketID == ticketID {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.Before(out[j].FiredAt) })
	return out, nil
}

type memorySink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *memorySink) Record(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memorySink) withAction(action string) []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for _, entry := range s.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

type testEnv struct {
	tickets       *fakeTicketRepo
	policies      *fakePolicyRepo
	customers     *fakeCustomerRepo
	surveys       *fakeSurveyRepo
	dissatisfied  *fakeDissatisfiedRepo
	notifications *fakeNotificationRepo
	escalations   *fakeEscalationRepo
	sink          *memorySink
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics

	policySvc   *PolicyService
	breachSvc   *BreachService
	ticketSvc   *TicketService
	feedbackSvc *FeedbackService
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	env := &testEnv{
		tickets:       newFakeTicketRepo(),
		policies:      &fakePolicyRepo{},
		customers:     newFakeCustomerRepo(),
		surveys:       &fakeSurveyRepo{},
		dissatisfied:  &fakeDissatisfiedRepo{},
		notifications: &fakeNotificationRepo{},
		escalations:   newFakeEscalationRepo(),
		sink:          &memorySink{},
		dispatcher:    events.NewInMemoryDispatcher(),
		metrics:       observability.NewMetrics(),
	}

	locks := NewTicketLocks()
	env.policySvc = NewPolicyService(env.policies, logger)
	env.breachSvc = NewBreachService(BreachDependencies{
		TicketRepo:       env.tickets,
		PolicyService:    env.policySvc,
		EscalationRepo:   env.escalations,
		NotificationRepo: env.notifications,
		AuditSink:        env.sink,
		Dispatcher:       env.dispatcher,
		Metrics:          env.metrics,
		Locks:            locks,
		Logger:           logger,
	})
	env.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:       env.tickets,
		CustomerRepo:     env.customers,
		PolicyService:    env.policySvc,
		BreachService:    env.breachSvc,
		NotificationRepo: env.notifications,
		AuditSink:        env.sink,
		Dispatcher:       env.dispatcher,
		Locks:            locks,
		Logger:           logger,
	})
	env.feedbackSvc = NewFeedbackService(FeedbackDependencies{
		SurveyRepo:       env.surveys,
		TicketRepo:       env.tickets,
		CustomerRepo:     env.customers,
		DissatisfiedRepo: env.dissatisfied,
		NotificationRepo: env.notifications,
		AuditSink:        env.sink,
		Dispatcher:       env.dispatcher,
		Logger:           logger,
	})
	return env
}

func (env *testEnv) addCustomer(customer domain.Customer) {
	clone := customer
	env.customers.customers[customer.ID] = &clone
}

func (env *testEnv) addPolicy(policy domain.SlaPolicy) {
	env.policies.mu.Lock()
	defer env.policies.mu.Unlock()
	env.policies.policies = append(env.policies.policies, policy)
}

func (env *testEnv) addTicket(ticket domain.Ticket) {
	env.tickets.mu.Lock()
	defer env.tickets.mu.Unlock()
	env.tickets.tickets[ticket.ID] = cloneTicket(&ticket)
}

func (env *testEnv) getTicket(id string) *domain.Ticket {
	env.tickets.mu.Lock()
	defer env.tickets.mu.Unlock()
	ticket, ok := env.tickets.tickets[id]
	if !ok {
		return nil
	}
	return cloneTicket(ticket)
}
