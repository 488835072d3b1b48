package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportstack/sla-engine/internal/domain"
)

// SurveyRepository persists CSAT submissions. Surveys are append-only.
type SurveyRepository interface {
	Create(ctx context.Context, survey *domain.Survey) error
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Survey, error)
	CountSubmittedBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error)
}

type surveyRepository struct {
	pool *pgxpool.Pool
}

// NewSurveyRepository instantiates repository.
func NewSurveyRepository(pool *pgxpool.Pool) SurveyRepository {
	return &surveyRepository{pool: pool}
}

func (r *surveyRepository) Create(ctx context.Context, survey *domain.Survey) error {
	const query = `
        INSERT INTO surveys (id, tenant_id, ticket_id, customer_id, rating, comment, channel, agent, submitted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		survey.ID,
		survey.TenantID,
		survey.TicketID,
		survey.CustomerID,
		survey.Rating,
		survey.Comment,
		survey.Channel,
		survey.Agent,
		survey.SubmittedAt,
	)
	return err
}

func (r *surveyRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Survey, error) {
	const query = `
        SELECT id, tenant_id, ticket_id, customer_id, rating, comment, channel, agent, submitted_at
        FROM surveys WHERE tenant_id=$1 ORDER BY submitted_at ASC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Survey
	for rows.Next() {
		var survey domain.Survey
		if err := rows.Scan(
			&survey.ID,
			&survey.TenantID,
			&survey.TicketID,
			&survey.CustomerID,
			&survey.Rating,
			&survey.Comment,
			&survey.Channel,
			&survey.Agent,
			&survey.SubmittedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, survey)
	}
	return result, rows.Err()
}

func (r *surveyRepository) CountSubmittedBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM surveys WHERE tenant_id=$1 AND submitted_at >= $2 AND submitted_at < $3`
	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
