package domain

import "time"

// CustomerCategoryVIP routes a customer's tickets to VIP policies.
const CustomerCategoryVIP = "VIP"

// Customer carries the attributes policy targeting matches against.
// Full customer record management lives outside the engine.
type Customer struct {
	ID        string
	TenantID  string
	Name      string
	Email     string
	Category  string
	PlanName  string
	CreatedAt time.Time
	DeletedAt *time.Time
}
