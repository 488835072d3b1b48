package dto

import (
	"time"

	"github.com/supportstack/sla-engine/internal/domain"
)

// CreateSlaPolicyRequest payload.
type CreateSlaPolicyRequest struct {
	Name                        string                        `json:"name"`
	ServiceType                 domain.ServiceType            `json:"service_type"`
	ResponseMinutes             int                           `json:"response_minutes"`
	ResolutionMinutesByPriority map[domain.TicketPriority]int `json:"resolution_minutes_by_priority"`
	Escalation                  domain.EscalationRules        `json:"escalation"`
	EscalateToRole              *string                       `json:"escalate_to_role,omitempty"`
	AppliesTo                   domain.PolicyTargeting        `json:"applies_to"`
	Active                      *bool                         `json:"active,omitempty"`
}

// SlaPolicyResponse provides full policy info.
type SlaPolicyResponse struct {
	ID                          string                        `json:"id"`
	Name                        string                        `json:"name"`
	ServiceType                 domain.ServiceType            `json:"service_type"`
	ResponseMinutes             int                           `json:"response_minutes"`
	ResolutionMinutesByPriority map[domain.TicketPriority]int `json:"resolution_minutes_by_priority"`
	Escalation                  domain.EscalationRules        `json:"escalation"`
	EscalateToRole              *string                       `json:"escalate_to_role,omitempty"`
	AppliesTo                   domain.PolicyTargeting        `json:"applies_to"`
	Active                      bool                          `json:"active"`
	CreatedAt                   time.Time                     `json:"created_at"`
	UpdatedAt                   time.Time                     `json:"updated_at"`
}

// NewSlaPolicyResponse maps a domain policy.
func NewSlaPolicyResponse(policy *domain.SlaPolicy) SlaPolicyResponse {
	return SlaPolicyResponse{
		ID:                          policy.ID,
		Name:                        policy.Name,
		ServiceType:                 policy.ServiceType,
		ResponseMinutes:             policy.ResponseMinutes,
		ResolutionMinutesByPriority: policy.ResolutionMinutesByPriority,
		Escalation:                  policy.Escalation,
		EscalateToRole:              policy.EscalateToRole,
		AppliesTo:                   policy.AppliesTo,
		Active:                      policy.Active,
		CreatedAt:                   policy.CreatedAt,
		UpdatedAt:                   policy.UpdatedAt,
	}
}

// NewSlaPolicyResponses maps a slice of policies.
func NewSlaPolicyResponses(policies []domain.SlaPolicy) []SlaPolicyResponse {
	out := make([]SlaPolicyResponse, 0, len(policies))
	for i := range policies {
		out = append(out, NewSlaPolicyResponse(&policies[i]))
	}
	return out
}
