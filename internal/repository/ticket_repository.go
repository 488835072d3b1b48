package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportstack/sla-engine/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	CustomerID *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. All reads are
// tenant scoped and exclude soft-deleted rows.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error)
	ListOpenWithPolicy(ctx context.Context, tenantID string) ([]domain.Ticket, error)
	ListTenantIDs(ctx context.Context) ([]string, error)
	CountClosedBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error)
	SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, tenant_id, customer_id, subject, description, type, priority,
        status, channel, assigned_agent, policy_id, sla_deadline, first_response_at, closed_at,
        created_at, updated_at, deleted_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, external_key, tenant_id, customer_id, subject, description, type,
            priority, status, channel, assigned_agent, policy_id, sla_deadline, first_response_at,
            closed_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.ExternalKey,
		ticket.TenantID,
		ticket.CustomerID,
		ticket.Subject,
		ticket.Description,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.Channel,
		ticket.AssignedAgent,
		ticket.PolicyID,
		ticket.SLADeadline,
		ticket.FirstResponseAt,
		ticket.ClosedAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, priority=$3, status=$4, assigned_agent=$5,
            policy_id=$6, sla_deadline=$7, first_response_at=$8, closed_at=$9, updated_at=$10
        WHERE id=$11 AND tenant_id=$12 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedAgent,
		ticket.PolicyID,
		ticket.SLADeadline,
		ticket.FirstResponseAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.TenantID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND tenant_id=$2 AND deleted_at IS NULL`
	row := r.pool.QueryRow(ctx, query, id, tenantID)
	return scanTicket(row)
}

func (r *ticketRepository) List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"tenant_id=$1", "deleted_at IS NULL"}
	args := []any{tenantID}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d",
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOpenWithPolicy(ctx context.Context, tenantID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE tenant_id=$1 AND status != $2 AND policy_id IS NOT NULL AND deleted_at IS NULL
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, tenantID, domain.TicketStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	const query = `
        SELECT DISTINCT tenant_id FROM tickets
        WHERE status != $1 AND deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func (r *ticketRepository) CountClosedBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE tenant_id=$1 AND closed_at >= $2 AND closed_at < $3 AND deleted_at IS NULL`
	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error {
	const query = `UPDATE tickets SET deleted_at=$1, updated_at=$1 WHERE id=$2 AND tenant_id=$3 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.TenantID,
		&ticket.CustomerID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Channel,
		&ticket.AssignedAgent,
		&ticket.PolicyID,
		&ticket.SLADeadline,
		&ticket.FirstResponseAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
