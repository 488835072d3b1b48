package domain

import "time"

// ServiceType classifies which tickets a policy covers. It mirrors the
// ticket type domain plus the VIP and TECHNICAL service variants.
type ServiceType string

const (
	ServiceTypeComplaint ServiceType = "COMPLAINT"
	ServiceTypeInquiry   ServiceType = "INQUIRY"
	ServiceTypeRequest   ServiceType = "REQUEST"
	ServiceTypeVIP       ServiceType = "VIP"
	ServiceTypeTechnical ServiceType = "TECHNICAL"
)

// Valid reports whether the service type is known.
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTypeComplaint, ServiceTypeInquiry, ServiceTypeRequest, ServiceTypeVIP, ServiceTypeTechnical:
		return true
	}
	return false
}

// EscalationAction is a discrete side effect fired on an SLA breach.
type EscalationAction string

const (
	ActionNotifyManager      EscalationAction = "NOTIFY_MANAGER"
	ActionReassignHigherRank EscalationAction = "REASSIGN_HIGHER_RANK"
	ActionIncreasePriority   EscalationAction = "INCREASE_PRIORITY"
	ActionNotifyCustomer     EscalationAction = "NOTIFY_CUSTOMER"
	ActionMarkEscalated      EscalationAction = "MARK_ESCALATED"
)

// Valid reports whether the action belongs to the fixed action set.
func (a EscalationAction) Valid() bool {
	switch a {
	case ActionNotifyManager, ActionReassignHigherRank, ActionIncreasePriority, ActionNotifyCustomer, ActionMarkEscalated:
		return true
	}
	return false
}

// PolicyTargeting narrows which customers a policy applies to. A
// zero-value targeting means the policy is a tenant-wide default.
type PolicyTargeting struct {
	CustomerIDs      []string `json:"customer_ids,omitempty"`
	CustomerCategory string   `json:"customer_category,omitempty"`
	PlanName         string   `json:"plan_name,omitempty"`
}

// IsDefault reports whether the targeting has no constraints at all.
func (t PolicyTargeting) IsDefault() bool {
	return len(t.CustomerIDs) == 0 && t.CustomerCategory == "" && t.PlanName == ""
}

// EscalationRules declares, per breach kind, which actions run in order.
type EscalationRules struct {
	OnResponseBreach   []EscalationAction `json:"on_response_breach"`
	OnResolutionBreach []EscalationAction `json:"on_resolution_breach"`
}

// SlaPolicy defines response/resolution commitments and escalation
// behavior for a class of tickets. Read-only to the engine.
type SlaPolicy struct {
	ID                          string
	TenantID                    string
	Name                        string
	ServiceType                 ServiceType
	ResponseMinutes             int
	ResolutionMinutesByPriority map[TicketPriority]int
	Escalation                  EscalationRules
	EscalateToRole              *string
	AppliesTo                   PolicyTargeting
	Active                      bool
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}
