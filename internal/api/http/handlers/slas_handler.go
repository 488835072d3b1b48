package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/supportstack/sla-engine/internal/api/dto"
	"github.com/supportstack/sla-engine/internal/auth"
	"github.com/supportstack/sla-engine/internal/service"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

// SlasHandler manages SLA policy administration endpoints.
type SlasHandler struct {
	policies *service.PolicyService
}

// NewSlasHandler constructs handler.
func NewSlasHandler(policies *service.PolicyService) *SlasHandler {
	return &SlasHandler{policies: policies}
}

// CreatePolicy POST /slas.
func (h *SlasHandler) CreatePolicy(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateSlaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.PolicyCreateInput{
		Name:                        req.Name,
		ServiceType:                 req.ServiceType,
		ResponseMinutes:             req.ResponseMinutes,
		ResolutionMinutesByPriority: req.ResolutionMinutesByPriority,
		OnResponseBreach:            req.Escalation.OnResponseBreach,
		OnResolutionBreach:          req.Escalation.OnResolutionBreach,
		EscalateToRole:              req.EscalateToRole,
		AppliesTo:                   req.AppliesTo,
		Active:                      req.Active,
	}
	policy, err := h.policies.CreatePolicy(c.UserContext(), principal.TenantID, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "policy created", dto.NewSlaPolicyResponse(policy))
}

// ListPolicies GET /slas.
func (h *SlasHandler) ListPolicies(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	policies, err := h.policies.ListPolicies(c.UserContext(), principal.TenantID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "policies listed", dto.NewSlaPolicyResponses(policies))
}

// GetPolicy GET /slas/:id.
func (h *SlasHandler) GetPolicy(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	policy, err := h.policies.GetByID(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "policy found", dto.NewSlaPolicyResponse(policy))
}
