package enums

import "slices"

// UserRole is the staff role carried in access tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleStaff   UserRole = "staff"
	RoleViewer  UserRole = "viewer"
)

var validUserRoles = []UserRole{
	RoleAdmin,
	RoleManager,
	RoleStaff,
	RoleViewer,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	return slices.Contains(validUserRoles, u)
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	return parse(value, validUserRoles, "user role")
}
