package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportstack/sla-engine/internal/domain"
)

// breachFixture seeds a policy and one open ticket bound to it.
func breachFixture(env *testEnv, createdAt time.Time, onResponse, onResolution []domain.EscalationAction) domain.Ticket {
	role := "senior-agent"
	policy := matchFixturePolicy("pol-1", createdAt, domain.PolicyTargeting{})
	policy.Escalation = domain.EscalationRules{
		OnResponseBreach:   onResponse,
		OnResolutionBreach: onResolution,
	}
	policy.EscalateToRole = &role
	env.addPolicy(policy)

	policyID := "pol-1"
	deadline := createdAt.Add(60 * time.Minute)
	ticket := domain.Ticket{
		ID:          "tk-1",
		ExternalKey: "TKT-tk-1",
		TenantID:    "t1",
		CustomerID:  "cust-1",
		Subject:     "slow vpn",
		Type:        domain.TicketTypeInquiry,
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusOpen,
		Channel:     domain.ChannelEmail,
		PolicyID:    &policyID,
		SLADeadline: &deadline,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	env.addTicket(ticket)
	return ticket
}

func TestSweepFiresResolutionBreachOnce(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breachFixture(env, createdAt,
		[]domain.EscalationAction{domain.ActionNotifyManager},
		[]domain.EscalationAction{domain.ActionMarkEscalated, domain.ActionNotifyManager})

	// first response already given, so only resolution can breach
	stored := env.getTicket("tk-1")
	responseAt := createdAt.Add(5 * time.Minute)
	stored.FirstResponseAt = &responseAt
	stored.Status = domain.TicketStatusInProgress
	env.addTicket(*stored)

	now := createdAt.Add(61 * time.Minute)
	fired, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	events, err := env.escalations.ListByTicket(context.Background(), "t1", "tk-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.BreachKindResolution, events[0].Kind)
	assert.Equal(t, []domain.EscalationAction{domain.ActionMarkEscalated, domain.ActionNotifyManager}, events[0].ActionsDispatched)

	after := env.getTicket("tk-1")
	assert.Equal(t, domain.TicketStatusEscalated, after.Status)

	// repeat sweeps never re-fire
	fired, err = env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
	assert.Len(t, env.notifications.ofType(domain.NotificationTypeSLABreach), 1)
}

func TestSweepFiresBothKinds(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breachFixture(env, createdAt,
		[]domain.EscalationAction{domain.ActionNotifyManager},
		[]domain.EscalationAction{domain.ActionIncreasePriority})

	// no first response and past both deadlines
	now := createdAt.Add(2 * time.Hour)
	fired, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", now)
	require.NoError(t, err)
	assert.Equal(t, 2, fired)

	events, err := env.escalations.ListByTicket(context.Background(), "t1", "tk-1")
	require.NoError(t, err)
	assert.Len(t, events, 2)

	after := env.getTicket("tk-1")
	assert.Equal(t, domain.TicketPriorityUrgent, after.Priority)
}

func TestIncreasePriorityDoesNotMoveDeadline(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ticket := breachFixture(env, createdAt, nil, []domain.EscalationAction{domain.ActionIncreasePriority})
	originalDeadline := *ticket.SLADeadline

	now := createdAt.Add(61 * time.Minute)
	_, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", now)
	require.NoError(t, err)

	after := env.getTicket("tk-1")
	assert.Equal(t, domain.TicketPriorityUrgent, after.Priority)
	require.NotNil(t, after.SLADeadline)
	assert.Equal(t, originalDeadline, *after.SLADeadline, "deadline is fixed at intake")
}

func TestReassignHigherRankUsesPolicyRole(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breachFixture(env, createdAt, nil, []domain.EscalationAction{domain.ActionReassignHigherRank})

	_, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", createdAt.Add(2*time.Hour))
	require.NoError(t, err)

	after := env.getTicket("tk-1")
	require.NotNil(t, after.AssignedAgent)
	assert.Equal(t, "senior-agent", *after.AssignedAgent)
}

func TestMarkEscalatedStampsFirstResponse(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breachFixture(env, createdAt, []domain.EscalationAction{domain.ActionMarkEscalated}, nil)

	now := createdAt.Add(20 * time.Minute)
	_, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", now)
	require.NoError(t, err)

	after := env.getTicket("tk-1")
	assert.Equal(t, domain.TicketStatusEscalated, after.Status)
	require.NotNil(t, after.FirstResponseAt)
	assert.Equal(t, now, *after.FirstResponseAt)
}

func TestSweepSkipsTicketsWithoutPolicy(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Now().Add(-24 * time.Hour)
	env.addTicket(domain.Ticket{
		ID:        "tk-bare",
		TenantID:  "t1",
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityHigh,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})

	fired, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}

func TestSweepSkipsMisconfiguredPolicy(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breachFixture(env, createdAt, []domain.EscalationAction{domain.ActionNotifyManager}, nil)

	// remove the ticket's priority bucket after intake
	env.policies.mu.Lock()
	delete(env.policies.policies[0].ResolutionMinutesByPriority, domain.TicketPriorityHigh)
	env.policies.mu.Unlock()

	fired, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", createdAt.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}

func TestFailingActionDoesNotBlockOthers(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breachFixture(env, createdAt, nil,
		[]domain.EscalationAction{domain.ActionNotifyManager, domain.ActionMarkEscalated})

	env.notifications.failCreate = errors.New("smtp down")

	fired, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", createdAt.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	events, err := env.escalations.ListByTicket(context.Background(), "t1", "tk-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	// only the action that succeeded is recorded
	assert.Equal(t, []domain.EscalationAction{domain.ActionMarkEscalated}, events[0].ActionsDispatched)

	after := env.getTicket("tk-1")
	assert.Equal(t, domain.TicketStatusEscalated, after.Status)
}

func TestTransitionTriggersBreachCheck(t *testing.T) {
	env := newTestEnv()
	env.addCustomer(domain.Customer{ID: "cust-1", TenantID: "t1"})
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breachFixture(env, createdAt, nil, []domain.EscalationAction{domain.ActionNotifyManager})

	// the transition happens after the resolution deadline passed
	now := createdAt.Add(90 * time.Minute)
	_, err := env.ticketSvc.Transition(context.Background(), testActor, "t1", "tk-1", domain.TicketStatusInProgress, now)
	require.NoError(t, err)

	events, err := env.escalations.ListByTicket(context.Background(), "t1", "tk-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.BreachKindResolution, events[0].Kind)
}

func TestClosedTicketNeverBreaches(t *testing.T) {
	env := newTestEnv()
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ticket := breachFixture(env, createdAt, []domain.EscalationAction{domain.ActionNotifyManager}, []domain.EscalationAction{domain.ActionNotifyManager})
	closedAt := createdAt.Add(10 * time.Minute)
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &closedAt
	ticket.FirstResponseAt = &closedAt
	env.addTicket(ticket)

	fired, err := env.breachSvc.CheckAllOpenTicketsForBreach(context.Background(), "t1", createdAt.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}
