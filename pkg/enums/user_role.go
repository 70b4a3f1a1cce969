package enums

// UserRole represents the portal-wide role assigned to a user.
type UserRole string

const (
	// UserRoleAgent handles cases assigned to them.
	UserRoleAgent UserRole = "agent"
	// UserRoleSupervisor sees every case and can reassign work.
	UserRoleSupervisor UserRole = "supervisor"
	// UserRoleAdmin manages users and triggers bulk operations.
	UserRoleAdmin UserRole = "admin"
)

// IsValid reports whether the role is one of the known values.
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAgent, UserRoleSupervisor, UserRoleAdmin:
		return true
	}
	return false
}
