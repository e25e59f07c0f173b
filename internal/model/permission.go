package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionCoursesWrite allows creating, updating and deleting courses.
	PermissionCoursesWrite Permission = "courses:write"

	// PermissionCoursesRefetch allows forcing the in-memory catalog to re-read the database.
	PermissionCoursesRefetch Permission = "courses:refetch"
)

// AllPermissions lists every permission an admin can hold.
var AllPermissions = []Permission{
	PermissionCoursesWrite,
	PermissionCoursesRefetch,
}

// PermissionStrings converts permissions to plain strings for JWT claims.
func PermissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
