// Package journal defines the append-only record of ledger operations.
// Every state change the engine commits produces one Entry; entries feed
// the persistence layer and plugin hooks.
package journal

import (
	"time"

	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/types"
)

// Kind identifies the operation an entry records.
type Kind string

const (
	KindGenesis   Kind = "genesis"
	KindMint      Kind = "mint"
	KindBatchMint Kind = "batch_mint"
	KindTransfer  Kind = "transfer"
	KindBurn      Kind = "burn"
	KindApproval  Kind = "approval"
	KindGrant     Kind = "grant"
	KindRevoke    Kind = "revoke"
	KindPause     Kind = "pause"
	KindUnpause   Kind = "unpause"
)

// Entry is one committed ledger operation. Which fields are set depends on
// the kind: batch issuance fills Recipients and Amounts with Amount holding
// the batch total, role changes fill Role and To, and delegated operations
// carry the spender in Actor with the owner in From. Supply is the total
// supply after the operation for balance-changing kinds.
type Entry struct {
	ID     id.JournalID `json:"id"`
	Ledger id.LedgerID  `json:"ledger"`
	Kind   Kind         `json:"kind"`

	Actor types.Address `json:"actor,omitempty"`
	From  types.Address `json:"from,omitempty"`
	To    types.Address `json:"to,omitempty"`

	Recipients []types.Address `json:"recipients,omitempty"`
	Amounts    []types.Amount  `json:"amounts,omitempty"`

	Amount types.Amount `json:"amount"`
	Role   types.Role   `json:"role,omitempty"`
	Supply types.Amount `json:"supply"`

	CreatedAt time.Time `json:"created_at"`
}

func newEntry(ledger id.LedgerID, kind Kind) *Entry {
	return &Entry{
		ID:        id.NewJournalID(),
		Ledger:    ledger,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// Genesis records the creation of a ledger, including any initial mint.
func Genesis(ledger id.LedgerID, deployer, receiver types.Address, amount, supply types.Amount) *Entry {
	e := newEntry(ledger, KindGenesis)
	e.Actor = deployer
	e.To = receiver
	e.Amount = amount
	e.Supply = supply
	return e
}

// Mint records a single-recipient issuance.
func Mint(ledger id.LedgerID, actor, to types.Address, amount, supply types.Amount) *Entry {
	e := newEntry(ledger, KindMint)
	e.Actor = actor
	e.To = to
	e.Amount = amount
	e.Supply = supply
	return e
}

// BatchMint records an atomic multi-recipient issuance. The recipient and
// amount slices are stored as given; Amount holds the batch total.
func BatchMint(ledger id.LedgerID, actor types.Address, recipients []types.Address, amounts []types.Amount, total, supply types.Amount) *Entry {
	e := newEntry(ledger, KindBatchMint)
	e.Actor = actor
	e.Recipients = recipients
	e.Amounts = amounts
	e.Amount = total
	e.Supply = supply
	return e
}

// Transfer records a direct balance movement.
func Transfer(ledger id.LedgerID, from, to types.Address, amount, supply types.Amount) *Entry {
	e := newEntry(ledger, KindTransfer)
	e.Actor = from
	e.From = from
	e.To = to
	e.Amount = amount
	e.Supply = supply
	return e
}

// TransferFrom records a delegated balance movement: the spender acts on
// the owner's balance.
func TransferFrom(ledger id.LedgerID, spender, from, to types.Address, amount, supply types.Amount) *Entry {
	e := Transfer(ledger, from, to, amount, supply)
	e.Actor = spender
	return e
}

// Burn records a supply reduction out of the owner's balance.
func Burn(ledger id.LedgerID, owner types.Address, amount, supply types.Amount) *Entry {
	e := newEntry(ledger, KindBurn)
	e.Actor = owner
	e.From = owner
	e.Amount = amount
	e.Supply = supply
	return e
}

// BurnFrom records a delegated supply reduction.
func BurnFrom(ledger id.LedgerID, spender, owner types.Address, amount, supply types.Amount) *Entry {
	e := Burn(ledger, owner, amount, supply)
	e.Actor = spender
	return e
}

// Approval records an allowance being set. From is the owner, To the
// spender, Amount the new allowance.
func Approval(ledger id.LedgerID, owner, spender types.Address, amount types.Amount) *Entry {
	e := newEntry(ledger, KindApproval)
	e.Actor = owner
	e.From = owner
	e.To = spender
	e.Amount = amount
	return e
}

// RoleGrant records an account being added to a role.
func RoleGrant(ledger id.LedgerID, actor types.Address, role types.Role, account types.Address) *Entry {
	e := newEntry(ledger, KindGrant)
	e.Actor = actor
	e.To = account
	e.Role = role
	return e
}

// RoleRevoke records an account being removed from a role.
func RoleRevoke(ledger id.LedgerID, actor types.Address, role types.Role, account types.Address) *Entry {
	e := newEntry(ledger, KindRevoke)
	e.Actor = actor
	e.To = account
	e.Role = role
	return e
}

// Pause records the ledger being halted.
func Pause(ledger id.LedgerID, actor types.Address) *Entry {
	e := newEntry(ledger, KindPause)
	e.Actor = actor
	return e
}

// Unpause records the ledger resuming.
func Unpause(ledger id.LedgerID, actor types.Address) *Entry {
	e := newEntry(ledger, KindUnpause)
	e.Actor = actor
	return e
}

// Touched returns the unique accounts whose balances this entry changed,
// in first-seen order. Entries that do not move balances return nil.
func (e *Entry) Touched() []types.Address {
	switch e.Kind {
	case KindGenesis, KindMint:
		if e.To.IsZero() {
			return nil
		}
		return []types.Address{e.To}
	case KindBatchMint:
		seen := make(map[types.Address]struct{}, len(e.Recipients))
		out := make([]types.Address, 0, len(e.Recipients))
		for _, r := range e.Recipients {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
		return out
	case KindTransfer:
		if e.From == e.To {
			return []types.Address{e.From}
		}
		return []types.Address{e.From, e.To}
	case KindBurn:
		return []types.Address{e.From}
	default:
		return nil
	}
}

// MovesBalances reports whether the entry's kind changes account balances.
func (e *Entry) MovesBalances() bool {
	switch e.Kind {
	case KindGenesis, KindMint, KindBatchMint, KindTransfer, KindBurn:
		return true
	default:
		return false
	}
}

// ListOpts filters and pages a journal query. Zero-value fields are
// ignored. Account matches either side of a movement (From or To);
// recipients of batch issuance are not matched.
type ListOpts struct {
	Kind    Kind
	Actor   types.Address
	Account types.Address
	Since   time.Time
	Limit   int
	Offset  int
}
