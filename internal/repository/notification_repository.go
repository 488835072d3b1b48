package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportstack/sla-engine/internal/domain"
)

// NotificationRepository records that a notification was dispatched.
// Records are write-once; delivery is an external concern.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, tenant_id, audience, type, message, dispatched_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		notification.ID,
		notification.TenantID,
		notification.Audience,
		notification.Type,
		notification.Message,
		notification.At,
	)
	return err
}
