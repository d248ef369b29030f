// Package roles defines the role codes shared between the user and
// permission services.
package roles

// Role codes as stored in the roles table.
const (
	SuperAdmin = "super_admin"
	Admin      = "admin"
	User       = "user"
)

// IsAdministrative reports whether code grants listing access.
func IsAdministrative(code string) bool {
	return code == SuperAdmin || code == Admin
}

// Known reports whether code is one of the seeded roles.
func Known(code string) bool {
	switch code {
	case SuperAdmin, Admin, User:
		return true
	}
	return false
}
