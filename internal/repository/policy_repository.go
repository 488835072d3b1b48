package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportstack/sla-engine/internal/domain"
)

// PolicyRepository encapsulates SLA policy persistence. The engine only
// reads policies at match time; writes come from policy administration.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.SlaPolicy) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.SlaPolicy, error)
	List(ctx context.Context, tenantID string) ([]domain.SlaPolicy, error)
	ListActiveByService(ctx context.Context, tenantID string, serviceType domain.ServiceType) ([]domain.SlaPolicy, error)
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository instantiates repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

const policyColumns = `id, tenant_id, name, service_type, response_minutes, resolution_minutes,
        escalation, escalate_to_role, applies_to, active, created_at, updated_at`

func (r *policyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	resolution, err := json.Marshal(policy.ResolutionMinutesByPriority)
	if err != nil {
		return fmt.Errorf("marshal resolution minutes: %w", err)
	}
	escalation, err := json.Marshal(policy.Escalation)
	if err != nil {
		return fmt.Errorf("marshal escalation rules: %w", err)
	}
	appliesTo, err := json.Marshal(policy.AppliesTo)
	if err != nil {
		return fmt.Errorf("marshal targeting: %w", err)
	}

	const query = `
        INSERT INTO sla_policies (id, tenant_id, name, service_type, response_minutes,
            resolution_minutes, escalation, escalate_to_role, applies_to, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = r.pool.Exec(ctx, query,
		policy.ID,
		policy.TenantID,
		policy.Name,
		policy.ServiceType,
		policy.ResponseMinutes,
		resolution,
		escalation,
		policy.EscalateToRole,
		appliesTo,
		policy.Active,
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	return err
}

func (r *policyRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE id=$1 AND tenant_id=$2`
	row := r.pool.QueryRow(ctx, query, id, tenantID)
	return scanPolicy(row)
}

func (r *policyRepository) List(ctx context.Context, tenantID string) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE tenant_id=$1 ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *policyRepository) ListActiveByService(ctx context.Context, tenantID string, serviceType domain.ServiceType) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + `
        FROM sla_policies
        WHERE tenant_id=$1 AND service_type=$2 AND active = TRUE
        ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query, tenantID, serviceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func scanPolicy(row pgx.Row) (*domain.SlaPolicy, error) {
	var (
		policy     domain.SlaPolicy
		resolution []byte
		escalation []byte
		appliesTo  []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(
		&policy.ID,
		&policy.TenantID,
		&policy.Name,
		&policy.ServiceType,
		&policy.ResponseMinutes,
		&resolution,
		&escalation,
		&policy.EscalateToRole,
		&appliesTo,
		&policy.Active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resolution, &policy.ResolutionMinutesByPriority); err != nil {
		return nil, fmt.Errorf("unmarshal resolution minutes: %w", err)
	}
	if err := json.Unmarshal(escalation, &policy.Escalation); err != nil {
		return nil, fmt.Errorf("unmarshal escalation rules: %w", err)
	}
	if err := json.Unmarshal(appliesTo, &policy.AppliesTo); err != nil {
		return nil, fmt.Errorf("unmarshal targeting: %w", err)
	}
	policy.CreatedAt = createdAt
	policy.UpdatedAt = updatedAt
	return &policy, nil
}

func scanPolicies(rows pgx.Rows) ([]domain.SlaPolicy, error) {
	var result []domain.SlaPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}
