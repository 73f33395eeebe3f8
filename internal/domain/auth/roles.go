package auth

// Roles come from the token, never from storage. Admin covers the people-ops
// committee that manages the catalog and reads reports; everyone else is a
// regular evaluator.
const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

func ValidRole(role string) bool {
	return role == RoleEmployee || role == RoleAdmin
}
