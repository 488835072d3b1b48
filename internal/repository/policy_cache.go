package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/domain"
)

const policyCacheTTL = 30 * time.Second

// CachedPolicyRepository decorates a PolicyRepository with a short-TTL
// Redis cache over the active-policy candidate lists. Cache failures
// fall through to the underlying store; writes invalidate.
type CachedPolicyRepository struct {
	inner  PolicyRepository
	client *redis.Client
	logger *zap.Logger
}

// NewCachedPolicyRepository wraps inner with the Redis cache. A nil
// client disables caching entirely.
func NewCachedPolicyRepository(inner PolicyRepository, client *redis.Client, logger *zap.Logger) PolicyRepository {
	if client == nil {
		return inner
	}
	return &CachedPolicyRepository{inner: inner, client: client, logger: logger}
}

func (r *CachedPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	if err := r.inner.Create(ctx, policy); err != nil {
		return err
	}
	key := policyCacheKey(policy.TenantID, policy.ServiceType)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("policy cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (r *CachedPolicyRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.SlaPolicy, error) {
	return r.inner.GetByID(ctx, tenantID, id)
}

func (r *CachedPolicyRepository) List(ctx context.Context, tenantID string) ([]domain.SlaPolicy, error) {
	return r.inner.List(ctx, tenantID)
}

func (r *CachedPolicyRepository) ListActiveByService(ctx context.Context, tenantID string, serviceType domain.ServiceType) ([]domain.SlaPolicy, error) {
	key := policyCacheKey(tenantID, serviceType)

	cached, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var policies []domain.SlaPolicy
		if unmarshalErr := json.Unmarshal(cached, &policies); unmarshalErr == nil {
			return policies, nil
		}
		// corrupt entry, fall through and refresh
	} else if err != redis.Nil {
		r.logger.Warn("policy cache read failed", zap.String("key", key), zap.Error(err))
	}

	policies, err := r.inner.ListActiveByService(ctx, tenantID, serviceType)
	if err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(policies); marshalErr == nil {
		if setErr := r.client.Set(ctx, key, payload, policyCacheTTL).Err(); setErr != nil {
			r.logger.Warn("policy cache write failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return policies, nil
}

func policyCacheKey(tenantID string, serviceType domain.ServiceType) string {
	return fmt.Sprintf("sla:policies:%s:%s", tenantID, serviceType)
}
