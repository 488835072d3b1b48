package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportstack/sla-engine/internal/domain"
	"github.com/supportstack/sla-engine/internal/repository"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

// PolicyService owns SLA policy administration and match-time lookup.
type PolicyService struct {
	policies repository.PolicyRepository
	logger   *zap.Logger
}

// NewPolicyService constructs the service.
func NewPolicyService(policies repository.PolicyRepository, logger *zap.Logger) *PolicyService {
	return &PolicyService{policies: policies, logger: logger}
}

// PolicyCreateInput describes policy creation payload.
type PolicyCreateInput struct {
	Name                        string
	ServiceType                 domain.ServiceType
	ResponseMinutes             int
	ResolutionMinutesByPriority map[domain.TicketPriority]int
	OnResponseBreach            []domain.EscalationAction
	OnResolutionBreach          []domain.EscalationAction
	EscalateToRole              *string
	AppliesTo                   domain.PolicyTargeting
	Active                      *bool
}

// CreatePolicy validates and persists a new SLA policy.
func (s *PolicyService) CreatePolicy(ctx context.Context, tenantID string, input PolicyCreateInput) (*domain.SlaPolicy, error) {
	if fields := validatePolicyInput(input); len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid policy", fields)
	}

	now := time.Now()
	policy := &domain.SlaPolicy{
		ID:                          uuid.NewString(),
		TenantID:                    tenantID,
		Name:                        strings.TrimSpace(input.Name),
		ServiceType:                 input.ServiceType,
		ResponseMinutes:             input.ResponseMinutes,
		ResolutionMinutesByPriority: input.ResolutionMinutesByPriority,
		Escalation: domain.EscalationRules{
			OnResponseBreach:   input.OnResponseBreach,
			OnResolutionBreach: input.OnResolutionBreach,
		},
		EscalateToRole: input.EscalateToRole,
		AppliesTo:      input.AppliesTo,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.Active != nil {
		policy.Active = *input.Active
	}

	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// ListPolicies returns all policies for a tenant.
func (s *PolicyService) ListPolicies(ctx context.Context, tenantID string) ([]domain.SlaPolicy, error) {
	return s.policies.List(ctx, tenantID)
}

// GetByID loads one policy within the tenant scope.
func (s *PolicyService) GetByID(ctx context.Context, tenantID, id string) (*domain.SlaPolicy, error) {
	return s.policies.GetByID(ctx, tenantID, id)
}

// MatchPolicy finds the single active policy governing a ticket class.
// Precedence: explicit customer id match, then customer category or
// plan match, then the tenant-wide default. Ties within a tier break by
// most-recently-updated policy. Returns (nil, nil) when nothing
// matches: no SLA commitment is a valid state, not an error.
func (s *PolicyService) MatchPolicy(ctx context.Context, tenantID string, serviceType domain.ServiceType, customer *domain.Customer) (*domain.SlaPolicy, error) {
	candidates, err := s.policies.ListActiveByService(ctx, tenantID, serviceType)
	if err != nil {
		return nil, err
	}

	var best *domain.SlaPolicy
	bestTier := 0
	for i := range candidates {
		tier := targetingTier(candidates[i].AppliesTo, customer)
		if tier == 0 {
			continue
		}
		// candidates arrive ordered by updated_at descending, so the
		// first hit within a tier is already the most recent one
		if best == nil || tier < bestTier {
			best = &candidates[i]
			bestTier = tier
		}
	}
	return best, nil
}

// targetingTier ranks how specifically a targeting matches a customer.
// 1 = explicit customer id, 2 = category/plan, 3 = default, 0 = no match.
func targetingTier(targeting domain.PolicyTargeting, customer *domain.Customer) int {
	if customer != nil {
		for _, id := range targeting.CustomerIDs {
			if id == customer.ID {
				return 1
			}
		}
	}
	if len(targeting.CustomerIDs) > 0 {
		return 0
	}
	if targeting.CustomerCategory != "" || targeting.PlanName != "" {
		if customer == nil {
			return 0
		}
		if targeting.CustomerCategory != "" && targeting.CustomerCategory == customer.Category {
			return 2
		}
		if targeting.PlanName != "" && targeting.PlanName == customer.PlanName {
			return 2
		}
		return 0
	}
	return 3
}

// ServiceTypeFor derives the policy service type for a ticket. VIP
// customers route to VIP policies regardless of ticket type.
func ServiceTypeFor(ticket *domain.Ticket, customer *domain.Customer) domain.ServiceType {
	if customer != nil && customer.Category == domain.CustomerCategoryVIP {
		return domain.ServiceTypeVIP
	}
	return domain.ServiceType(ticket.Type)
}

func validatePolicyInput(input PolicyCreateInput) []apperrors.FieldError {
	var fields []apperrors.FieldError
	if strings.TrimSpace(input.Name) == "" {
		fields = append(fields, apperrors.FieldError{Path: "name", Message: "required"})
	}
	if !input.ServiceType.Valid() {
		fields = append(fields, apperrors.FieldError{Path: "service_type", Message: "unknown service type"})
	}
	if input.ResponseMinutes <= 0 {
		fields = append(fields, apperrors.FieldError{Path: "response_minutes", Message: "must be positive"})
	}
	for _, priority := range domain.Priorities {
		minutes, ok := input.ResolutionMinutesByPriority[priority]
		if !ok {
			fields = append(fields, apperrors.FieldError{
				Path:    "resolution_minutes." + strings.ToLower(string(priority)),
				Message: "required",
			})
			continue
		}
		if minutes <= 0 {
			fields = append(fields, apperrors.FieldError{
				Path:    "resolution_minutes." + strings.ToLower(string(priority)),
				Message: "must be positive",
			})
		}
	}
	for _, action := range input.OnResponseBreach {
		if !action.Valid() {
			fields = append(fields, apperrors.FieldError{
				Path:    "escalation.on_response_breach." + strings.ToLower(string(action)),
				Message: "unknown action",
			})
		}
	}
	for _, action := range input.OnResolutionBreach {
		if !action.Valid() {
			fields = append(fields, apperrors.FieldError{
				Path:    "escalation.on_resolution_breach." + strings.ToLower(string(action)),
				Message: "unknown action",
			})
		}
	}
	return fields
}
