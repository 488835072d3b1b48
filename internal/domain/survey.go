package domain

import "time"

// Survey is a CSAT submission tied to a ticket. Immutable once created;
// repeat submissions for the same ticket are distinct records.
type Survey struct {
	ID          string
	TenantID    string
	TicketID    string
	CustomerID  string
	Rating      int
	Comment     string
	Channel     Channel
	Agent       *string
	SubmittedAt time.Time
}

// Negative reports whether the rating triggers the escalation workflow.
func (s Survey) Negative() bool {
	return s.Rating <= 2
}

// MonthKeyFormat renders time as a YYYY-MM rollup key.
const MonthKeyFormat = "2006-01"

// DissatisfiedCustomerRecord is the append-only monthly rollup entry
// created for every negative survey.
type DissatisfiedCustomerRecord struct {
	ID         string
	TenantID   string
	CustomerID string
	SurveyID   string
	MonthKey   string
	AddedAt    time.Time
}
