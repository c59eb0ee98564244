package store

import (
	"context"
	"time"

	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/types"
)

// Ledger is the persisted descriptor of one treasury ledger: display
// metadata plus the supply figures and pause state mirrored from the books.
type Ledger struct {
	ID     id.LedgerID  `json:"id"`
	Name   string       `json:"name"`
	Symbol string       `json:"symbol"`
	Cap    types.Amount `json:"cap"`
	Supply types.Amount `json:"supply"`
	Status book.Status  `json:"status"`
	types.Entity
}

// Store is the unified storage interface for all Treasury entities.
// Instead of embedding sub-interfaces, all methods are declared explicitly
// to avoid naming conflicts.
//
// Balances and allowances are total functions of their keys: GetBalance
// returns a zero-amount row for an unknown account rather than an error.
// Upserts may be handed zero amounts and must persist them, since a zero
// row records an account that was emptied or an allowance that was revoked.
type Store interface {
	// Ledger methods
	CreateLedger(ctx context.Context, l *Ledger) error
	GetLedger(ctx context.Context, ledgerID id.LedgerID) (*Ledger, error)
	ListLedgers(ctx context.Context) ([]*Ledger, error)
	UpdateLedger(ctx context.Context, l *Ledger) error
	DeleteLedger(ctx context.Context, ledgerID id.LedgerID) error

	// Balance methods
	UpsertBalances(ctx context.Context, ledgerID id.LedgerID, balances []book.Balance) error
	GetBalance(ctx context.Context, ledgerID id.LedgerID, addr types.Address) (*book.Balance, error)
	ListBalances(ctx context.Context, ledgerID id.LedgerID) ([]book.Balance, error)

	// Allowance methods
	UpsertAllowances(ctx context.Context, ledgerID id.LedgerID, allowances []book.Allowance) error
	ListAllowances(ctx context.Context, ledgerID id.LedgerID) ([]book.Allowance, error)

	// Role methods
	GrantRole(ctx context.Context, ledgerID id.LedgerID, g book.Grant) error
	RevokeRole(ctx context.Context, ledgerID id.LedgerID, g book.Grant) error
	ListGrants(ctx context.Context, ledgerID id.LedgerID) ([]book.Grant, error)

	// Journal methods
	AppendEntries(ctx context.Context, entries []*journal.Entry) error
	ListEntries(ctx context.Context, ledgerID id.LedgerID, opts journal.ListOpts) ([]*journal.Entry, error)
	PurgeEntries(ctx context.Context, ledgerID id.LedgerID, before time.Time) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// LoadSnapshot assembles a full bookkeeping snapshot for one ledger from
// its persisted rows. It returns the ledger descriptor alongside the
// snapshot so callers can restore both the books and the display metadata.
func LoadSnapshot(ctx context.Context, s Store, ledgerID id.LedgerID) (*Ledger, *book.Snapshot, error) {
	l, err := s.GetLedger(ctx, ledgerID)
	if err != nil {
		return nil, nil, err
	}
	balances, err := s.ListBalances(ctx, ledgerID)
	if err != nil {
		return nil, nil, err
	}
	allowances, err := s.ListAllowances(ctx, ledgerID)
	if err != nil {
		return nil, nil, err
	}
	grants, err := s.ListGrants(ctx, ledgerID)
	if err != nil {
		return nil, nil, err
	}
	return l, &book.Snapshot{
		Cap:        l.Cap,
		Supply:     l.Supply,
		Status:     l.Status,
		Balances:   balances,
		Allowances: allowances,
		Grants:     grants,
	}, nil
}
