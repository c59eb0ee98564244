package types

import "errors"

// ErrUnknownRole is returned when a role name is not one of the defined roles.
var ErrUnknownRole = errors.New("treasury: unknown role")

// Role names a class of privileged operations on a treasury ledger.
type Role string

// The defined roles. ADMIN governs grant and revoke of every role including
// itself; MINTER may mint; PAUSER may pause and unpause.
const (
	RoleAdmin  Role = "admin"
	RoleMinter Role = "minter"
	RolePauser Role = "pauser"
)

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Valid returns true if the role is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMinter, RolePauser:
		return true
	default:
		return false
	}
}

// String returns the role name.
func (r Role) String() string { return string(r) }

// Roles returns all defined roles in stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleMinter, RolePauser}
}
