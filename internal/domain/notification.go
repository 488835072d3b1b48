package domain

import "time"

// NotificationAudience identifies the recipient class.
type NotificationAudience string

const (
	AudienceManager    NotificationAudience = "MANAGER"
	AudienceSupervisor NotificationAudience = "SUPERVISOR"
	AudienceCustomer   NotificationAudience = "CUSTOMER"
	AudienceAgent      NotificationAudience = "AGENT"
)

// NotificationType categorizes why a notification was dispatched.
type NotificationType string

const (
	NotificationTypeSLABreach       NotificationType = "SLA_BREACH"
	NotificationTypeLowSatisfaction NotificationType = "LOW_SATISFACTION"
	NotificationTypeSurveyPrompt    NotificationType = "SURVEY_PROMPT"
)

// Notification is a write-once record that a message was dispatched.
// Delivery mechanics belong to an external collaborator.
type Notification struct {
	ID       string
	TenantID string
	Audience NotificationAudience
	Type     NotificationType
	Message  string
	At       time.Time
}
