package treasury

import "github.com/xraph/treasury/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Role is re-exported from types package.
type Role = types.Role

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	Units       = types.Units
	Tokens      = types.Tokens
	Zero        = types.Zero
	MaxAmount   = types.MaxAmount
	ParseAmount = types.ParseAmount
	MustAmount  = types.MustAmount
	Sum         = types.Sum
)

// Re-export role constants
const (
	RoleAdmin  = types.RoleAdmin
	RoleMinter = types.RoleMinter
	RolePauser = types.RolePauser
)

// Roles is re-exported from types package.
var Roles = types.Roles

// Re-export Entity constructor
var NewEntity = types.NewEntity
