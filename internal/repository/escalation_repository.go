package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportstack/sla-engine/internal/domain"
)

// EscalationEventRepository is the bookkeeping behind at-most-once
// breach firing: one row per (ticket, breach kind), ever.
type EscalationEventRepository interface {
	Create(ctx context.Context, event *domain.EscalationEvent) error
	Exists(ctx context.Context, tenantID, ticketID string, kind domain.BreachKind) (bool, error)
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.EscalationEvent, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationEventRepository instantiates repository.
func NewEscalationEventRepository(pool *pgxpool.Pool) EscalationEventRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Create(ctx context.Context, event *domain.EscalationEvent) error {
	actions := make([]string, 0, len(event.ActionsDispatched))
	for _, action := range event.ActionsDispatched {
		actions = append(actions, string(action))
	}
	const query = `
        INSERT INTO escalation_events (id, tenant_id, ticket_id, kind, fired_at, actions)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ticket_id, kind) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.TenantID,
		event.TicketID,
		event.Kind,
		event.FiredAt,
		actions,
	)
	return err
}

func (r *escalationRepository) Exists(ctx context.Context, tenantID, ticketID string, kind domain.BreachKind) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM escalation_events WHERE tenant_id=$1 AND ticket_id=$2 AND kind=$3)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, tenantID, ticketID, kind).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *escalationRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.EscalationEvent, error) {
	const query = `
        SELECT id, tenant_id, ticket_id, kind, fired_at, actions
        FROM escalation_events WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY fired_at ASC`
	rows, err := r.pool.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalationEvent
	for rows.Next() {
		var (
			event   domain.EscalationEvent
			actions []string
		)
		if err := rows.Scan(&event.ID, &event.TenantID, &event.TicketID, &event.Kind, &event.FiredAt, &actions); err != nil {
			return nil, err
		}
		for _, action := range actions {
			event.ActionsDispatched = append(event.ActionsDispatched, domain.EscalationAction(action))
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
