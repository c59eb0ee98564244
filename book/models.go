package book

import (
	"github.com/xraph/treasury/types"
)

// Status is the pause state of a ledger.
type Status string

// Ledger pause states. A ledger starts Active; while Paused every
// balance-changing operation is rejected.
const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// Valid returns true if the status is one of the defined states.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusPaused
}

// Balance is one account's holding.
type Balance struct {
	Address types.Address `json:"address"`
	Amount  types.Amount  `json:"amount"`
}

// Allowance is a spending approval from an owner to a spender.
type Allowance struct {
	Owner   types.Address `json:"owner"`
	Spender types.Address `json:"spender"`
	Amount  types.Amount  `json:"amount"`
}

// Grant is one account's membership in a role.
type Grant struct {
	Role    types.Role    `json:"role"`
	Address types.Address `json:"address"`
}

// Snapshot is a full copy of a ledger's authoritative state, used to
// persist the books and to restore them on startup. Balances, allowances
// and grants are sorted for deterministic output.
type Snapshot struct {
	Cap        types.Amount `json:"cap"`
	Supply     types.Amount `json:"supply"`
	Status     Status       `json:"status"`
	Balances   []Balance    `json:"balances"`
	Allowances []Allowance  `json:"allowances"`
	Grants     []Grant      `json:"grants"`
}
