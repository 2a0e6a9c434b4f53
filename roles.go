package classtrack

// Role is the application-level role attached to a profile.
type Role string

const (
	// RoleStudent can view the student dashboard, book rooms, and use the chat.
	RoleStudent Role = "student"
	// RoleAdmin manages rooms, schedules, and user approval.
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role grants access to admin routes
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleStudent,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
