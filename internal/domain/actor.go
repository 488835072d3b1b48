package domain

// Role enumerates caller roles attached to the tenant context.
type Role string

const (
	RoleAgent      Role = "AGENT"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
	RoleSystem     Role = "SYSTEM"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleSupervisor, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who performed a mutation. The sweep and the
// escalation dispatcher act as the SYSTEM actor.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used for engine-initiated mutations.
var SystemActor = Actor{ID: "system", Role: RoleSystem}
