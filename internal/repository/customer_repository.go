package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportstack/sla-engine/internal/domain"
)

// CustomerRepository reads the customer attributes policy targeting
// matches against. Customer CRUD lives outside the engine.
type CustomerRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error) {
	const query = `
        SELECT id, tenant_id, name, email, category, plan_name, created_at, deleted_at
        FROM customers WHERE id=$1 AND tenant_id=$2 AND deleted_at IS NULL`
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, id, tenantID).Scan(
		&customer.ID,
		&customer.TenantID,
		&customer.Name,
		&customer.Email,
		&customer.Category,
		&customer.PlanName,
		&customer.CreatedAt,
		&customer.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}
