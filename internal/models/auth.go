package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by the loan program.
type UserRole string

const (
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleTechnician UserRole = "TECHNICIAN"
	RoleAdmin      UserRole = "ADMIN"
	// RoleSystem is assumed by the expiration sweeper. It is never issued
	// in a token.
	RoleSystem UserRole = "SYSTEM"
)

// Reviewer reports whether the role may approve, reject, or finish requests.
func (r UserRole) Reviewer() bool {
	return r == RoleTechnician || r == RoleAdmin
}

// JWTClaims represents the access-token payload issued by the institutional
// SSO. This service only validates tokens; it never issues them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor identifies who is attempting a lifecycle transition.
type Actor struct {
	ID   string
	Name string
	Role UserRole
}

// SystemActor is the identity the sweeper uses for automatic cancellations.
var SystemActor = Actor{ID: "system", Name: "expiration sweeper", Role: RoleSystem}
