package dto

import (
	"time"

	"github.com/supportstack/sla-engine/internal/domain"
)

// SubmitSurveyRequest payload.
type SubmitSurveyRequest struct {
	TicketID   string         `json:"ticket_id"`
	CustomerID string         `json:"customer_id"`
	Rating     int            `json:"rating"`
	Comment    string         `json:"comment"`
	Channel    domain.Channel `json:"channel"`
}

// SurveyResponse provides stored survey info.
type SurveyResponse struct {
	ID          string         `json:"id"`
	TicketID    string         `json:"ticket_id"`
	CustomerID  string         `json:"customer_id"`
	Rating      int            `json:"rating"`
	Comment     string         `json:"comment,omitempty"`
	Channel     domain.Channel `json:"channel"`
	Agent       *string        `json:"agent,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// NewSurveyResponse maps a domain survey.
func NewSurveyResponse(survey *domain.Survey) SurveyResponse {
	return SurveyResponse{
		ID:          survey.ID,
		TicketID:    survey.TicketID,
		CustomerID:  survey.CustomerID,
		Rating:      survey.Rating,
		Comment:     survey.Comment,
		Channel:     survey.Channel,
		Agent:       survey.Agent,
		SubmittedAt: survey.SubmittedAt,
	}
}
