package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supportstack/sla-engine/internal/api/dto"
	"github.com/supportstack/sla-engine/internal/auth"
	"github.com/supportstack/sla-engine/internal/service"
	"github.com/supportstack/sla-engine/pkg/apperrors"
)

// SurveysHandler manages CSAT submission and reporting endpoints.
type SurveysHandler struct {
	feedback *service.FeedbackService
}

// NewSurveysHandler constructs handler.
func NewSurveysHandler(feedback *service.FeedbackService) *SurveysHandler {
	return &SurveysHandler{feedback: feedback}
}

// SubmitSurvey POST /feedbacks/surveys.
func (h *SurveysHandler) SubmitSurvey(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitSurveyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	survey, err := h.feedback.SubmitSurvey(c.UserContext(), principal.Actor(), principal.TenantID, service.SurveyInput{
		TicketID:   req.TicketID,
		CustomerID: req.CustomerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Channel:    req.Channel,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "survey submitted", dto.NewSurveyResponse(survey))
}

// Stats GET /feedbacks/surveys/stats.
func (h *SurveysHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.feedback.Stats(c.UserContext(), principal.TenantID, time.Now())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "survey stats", stats)
}
