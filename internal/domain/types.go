package domain

const (
	RoleAdmin    = "ADMIN"
	RoleOperator = "OPERATOR"
)

// ValidRole reports whether role is one of the account roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleOperator
}
