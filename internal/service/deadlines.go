package service

import (
	"fmt"
	"time"

	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

// Deadlines are the commitments a matched policy stamps onto a ticket.
type Deadlines struct {
	Response   time.Time
	Resolution time.Time
}

// ComputeDeadlines derives response and resolution deadlines from a
// policy and the ticket's priority and creation time. Pure and
// deterministic. Returns a ConfigError when the policy is missing the
// ticket's priority bucket; callers then treat the ticket as having no
// SLA commitment.
func ComputeDeadlines(policy *domain.SlaPolicy, ticket *domain.Ticket) (Deadlines, error) {
	minutes, ok := policy.ResolutionMinutesByPriority[ticket.Priority]
	if !ok {
		return Deadlines{}, apperrors.NewConfigError(
			fmt.Sprintf("policy %s has no resolution bucket for priority %s", policy.ID, ticket.Priority))
	}
	return Deadlines{
		Response:   ticket.CreatedAt.Add(time.Duration(policy.ResponseMinutes) * time.Minute),
		Resolution: ticket.CreatedAt.Add(time.Duration(minutes) * time.Minute),
	}, nil
}
