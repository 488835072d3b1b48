package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportstack/sla-engine/internal/domain"
)

// DissatisfiedRepository stores the append-only monthly rollup of
// negative surveys.
type DissatisfiedRepository interface {
	Create(ctx context.Context, record *domain.DissatisfiedCustomerRecord) error
	CountByMonthKey(ctx context.Context, tenantID, monthKey string) (int, error)
}

type dissatisfiedRepository struct {
	pool *pgxpool.Pool
}

// NewDissatisfiedRepository instantiates repository.
func NewDissatisfiedRepository(pool *pgxpool.Pool) DissatisfiedRepository {
	return &dissatisfiedRepository{pool: pool}
}

func (r *dissatisfiedRepository) Create(ctx context.Context, record *domain.DissatisfiedCustomerRecord) error {
	const query = `
        INSERT INTO dissatisfied_customers (id, tenant_id, customer_id, survey_id, month_key, added_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.TenantID,
		record.CustomerID,
		record.SurveyID,
		record.MonthKey,
		record.AddedAt,
	)
	return err
}

func (r *dissatisfiedRepository) CountByMonthKey(ctx context.Context, tenantID, monthKey string) (int, error) {
	const query = `SELECT COUNT(*) FROM dissatisfied_customers WHERE tenant_id=$1 AND month_key=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID, monthKey).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
