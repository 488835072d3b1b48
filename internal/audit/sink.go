package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Entry is one append-only audit record.
type Entry struct {
	Entity   string
	EntityID string
	Action   string
	Changes  map[string]any
	ActorID  string
	TenantID string
	At       time.Time
}

// Sink receives every state change and dispatched action. Callers treat
// it as fire-and-forget: a failed Record never rolls back the
// triggering operation.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

type postgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink writes audit entries to the audit_log table.
func NewPostgresSink(pool *pgxpool.Pool) Sink {
	return &postgresSink{pool: pool}
}

func (s *postgresSink) Record(ctx context.Context, entry Entry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	const query = `
        INSERT INTO audit_log (tenant_id, entity, entity_id, action, changes, actor_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.pool.Exec(ctx, query,
		entry.TenantID,
		entry.Entity,
		entry.EntityID,
		entry.Action,
		entry.Changes,
		entry.ActorID,
		entry.At,
	)
	return err
}

type logSink struct {
	logger *zap.Logger
}

// NewLogSink records audit entries to the structured log. Used when no
// database is configured.
func NewLogSink(logger *zap.Logger) Sink {
	return &logSink{logger: logger}
}

func (s *logSink) Record(ctx context.Context, entry Entry) error {
	s.logger.Info("audit",
		zap.String("tenant_id", entry.TenantID),
		zap.String("entity", entry.Entity),
		zap.String("entity_id", entry.EntityID),
		zap.String("action", entry.Action),
		zap.String("actor_id", entry.ActorID),
		zap.Any("changes", entry.Changes),
	)
	return nil
}
