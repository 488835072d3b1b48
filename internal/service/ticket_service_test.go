package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

var testActor = domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

func (env *testEnv) seedCustomer() domain.Customer {
	customer := domain.Customer{ID: "cust-1", TenantID: "t1", Name: "Acme", Email: "ops@acme.test"}
	env.addCustomer(customer)
	return customer
}

func (env *testEnv) seedOpenTicket(id string, createdAt time.Time) domain.Ticket {
	ticket := domain.Ticket{
		ID:          id,
		ExternalKey: "TKT-" + id,
		TenantID:    "t1",
		CustomerID:  "cust-1",
		Subject:     "printer on fire",
		Type:        domain.TicketTypeInquiry,
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusOpen,
		Channel:     domain.ChannelEmail,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	env.addTicket(ticket)
	return ticket
}

func TestCreateTicketStampsSLA(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	env.addPolicy(matchFixturePolicy("default", time.Now(), domain.PolicyTargeting{}))

	ticket, err := env.ticketSvc.CreateTicket(context.Background(), testActor, "t1", TicketCreateInput{
		CustomerID: "cust-1",
		Subject:    "printer on fire",
		Type:       domain.TicketTypeInquiry,
		Priority:   domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.PolicyID)
	assert.Equal(t, "default", *ticket.PolicyID)
	require.NotNil(t, ticket.SLADeadline)
	assert.Equal(t, ticket.CreatedAt.Add(60*time.Minute), *ticket.SLADeadline)
	assert.Nil(t, ticket.FirstResponseAt)
	assert.Nil(t, ticket.ClosedAt)
}

func TestCreateTicketWithoutPolicy(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()

	ticket, err := env.ticketSvc.CreateTicket(context.Background(), testActor, "t1", TicketCreateInput{
		CustomerID: "cust-1",
		Subject:    "no sla here",
		Type:       domain.TicketTypeRequest,
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.PolicyID)
	assert.Nil(t, ticket.SLADeadline)
}

func TestCreateTicketMisconfiguredPolicyProceedsWithoutSLA(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	broken := matchFixturePolicy("broken", time.Now(), domain.PolicyTargeting{})
	delete(broken.ResolutionMinutesByPriority, domain.TicketPriorityHigh)
	env.addPolicy(broken)

	ticket, err := env.ticketSvc.CreateTicket(context.Background(), testActor, "t1", TicketCreateInput{
		CustomerID: "cust-1",
		Subject:    "printer on fire",
		Type:       domain.TicketTypeInquiry,
		Priority:   domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.PolicyID)
	assert.Nil(t, ticket.SLADeadline)
}

func TestCreateTicketUnknownCustomer(t *testing.T) {
	env := newTestEnv()

	_, err := env.ticketSvc.CreateTicket(context.Background(), testActor, "t1", TicketCreateInput{
		CustomerID: "ghost",
		Subject:    "hello",
		Type:       domain.TicketTypeInquiry,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestTransitionStampsFirstResponseOnce(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	created := time.Now().Add(-10 * time.Minute)
	env.seedOpenTicket("tk-1", created)
	ctx := context.Background()

	t1 := created.Add(5 * time.Minute)
	ticket, err := env.ticketSvc.Transition(ctx, testActor, "t1", "tk-1", domain.TicketStatusInProgress, t1)
	require.NoError(t, err)
	require.NotNil(t, ticket.FirstResponseAt)
	assert.Equal(t, t1, *ticket.FirstResponseAt)

	t2 := created.Add(8 * time.Minute)
	ticket, err = env.ticketSvc.Transition(ctx, testActor, "t1", "tk-1", domain.TicketStatusEscalated, t2)
	require.NoError(t, err)
	assert.Equal(t, t1, *ticket.FirstResponseAt, "first response stamp is write-once")
}

func TestTransitionClosedIsTerminal(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	created := time.Now().Add(-time.Hour)
	env.seedOpenTicket("tk-1", created)
	ctx := context.Background()

	closeAt := created.Add(30 * time.Minute)
	ticket, err := env.ticketSvc.Transition(ctx, testActor, "t1", "tk-1", domain.TicketStatusClosed, closeAt)
	require.NoError(t, err)
	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, closeAt, *ticket.ClosedAt)

	_, err = env.ticketSvc.Transition(ctx, testActor, "t1", "tk-1", domain.TicketStatusInProgress, closeAt.Add(time.Minute))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestTransitionRejectsBackwardMove(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	env.seedOpenTicket("tk-1", time.Now())
	ctx := context.Background()

	_, err := env.ticketSvc.Transition(ctx, testActor, "t1", "tk-1", domain.TicketStatusEscalated, time.Now())
	require.NoError(t, err)

	_, err = env.ticketSvc.Transition(ctx, testActor, "t1", "tk-1", domain.TicketStatusInProgress, time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestCloseDispatchesSurveyPrompts(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	env.seedOpenTicket("tk-1", time.Now())

	_, err := env.ticketSvc.Transition(context.Background(), testActor, "t1", "tk-1", domain.TicketStatusClosed, time.Now())
	require.NoError(t, err)

	prompts := env.notifications.ofType(domain.NotificationTypeSurveyPrompt)
	assert.Len(t, prompts, len(domain.SurveyPromptChannels))
	assert.Len(t, env.sink.withAction("survey_prompt"), len(domain.SurveyPromptChannels))
}

func TestConcurrentCloseStampsOnce(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	env.seedOpenTicket("tk-1", time.Now().Add(-time.Hour))
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := env.ticketSvc.Transition(ctx, testActor, "t1", "tk-1",
				domain.TicketStatusClosed, time.Now().Add(time.Duration(n)*time.Millisecond))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one close must win")

	stored := env.getTicket("tk-1")
	require.NotNil(t, stored.ClosedAt)
	assert.Len(t, env.notifications.ofType(domain.NotificationTypeSurveyPrompt), len(domain.SurveyPromptChannels))
}

func TestUpdatePriorityOnClosedTicket(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	ticket := env.seedOpenTicket("tk-1", time.Now())
	ticket.Status = domain.TicketStatusClosed
	now := time.Now()
	ticket.ClosedAt = &now
	env.addTicket(ticket)

	_, err := env.ticketSvc.UpdatePriority(context.Background(), testActor, "t1", "tk-1", domain.TicketPriorityUrgent, time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestReassign(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	env.seedOpenTicket("tk-1", time.Now())

	agent := "agent-9"
	ticket, err := env.ticketSvc.Reassign(context.Background(), testActor, "t1", "tk-1", &agent, time.Now())
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedAgent)
	assert.Equal(t, "agent-9", *ticket.AssignedAgent)
	assert.Len(t, env.sink.withAction("reassign"), 1)
}

func TestSoftDeleteHidesTicket(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	env.seedOpenTicket("tk-1", time.Now())
	ctx := context.Background()

	require.NoError(t, env.ticketSvc.SoftDelete(ctx, testActor, "t1", "tk-1", time.Now()))

	_, err := env.ticketSvc.GetTicket(ctx, "t1", "tk-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	err = env.ticketSvc.SoftDelete(ctx, testActor, "t1", "tk-1", time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestTicketTenantIsolation(t *testing.T) {
	env := newTestEnv()
	env.seedCustomer()
	env.seedOpenTicket("tk-1", time.Now())

	_, err := env.ticketSvc.GetTicket(context.Background(), "t2", "tk-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
