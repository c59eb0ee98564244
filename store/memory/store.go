package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

type allowanceKey struct {
	owner   types.Address
	spender types.Address
}

type Store struct {
	mu sync.RWMutex

	// Ledger storage
	ledgers map[string]*store.Ledger

	// Balance and allowance storage, keyed by ledger
	balances   map[string]map[types.Address]types.Amount
	allowances map[string]map[allowanceKey]types.Amount

	// Role storage, keyed by ledger
	grants map[string]map[book.Grant]struct{}

	// Journal storage
	entries []journal.Entry
}

func New() *Store {
	return &Store{
		ledgers:    make(map[string]*store.Ledger),
		balances:   make(map[string]map[types.Address]types.Amount),
		allowances: make(map[string]map[allowanceKey]types.Amount),
		grants:     make(map[string]map[book.Grant]struct{}),
		entries:    make([]journal.Entry, 0),
	}
}

// Ledger Store implementation
func (s *Store) CreateLedger(_ context.Context, l *store.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ledgers[l.ID.String()]; exists {
		return treasury.ErrAlreadyExists
	}
	clone := *l
	s.ledgers[l.ID.String()] = &clone
	return nil
}

func (s *Store) GetLedger(_ context.Context, ledgerID id.LedgerID) (*store.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.ledgers[ledgerID.String()]; ok {
		clone := *l
		return &clone, nil
	}
	return nil, treasury.ErrLedgerNotFound
}

func (s *Store) ListLedgers(_ context.Context) ([]*store.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*store.Ledger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		clone := *l
		result = append(result, &clone)
	}
	return result, nil
}

func (s *Store) UpdateLedger(_ context.Context, l *store.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ledgers[l.ID.String()]; !exists {
		return treasury.ErrLedgerNotFound
	}
	clone := *l
	s.ledgers[l.ID.String()] = &clone
	return nil
}

func (s *Store) DeleteLedger(_ context.Context, ledgerID id.LedgerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerID.String()
	delete(s.ledgers, key)
	delete(s.balances, key)
	delete(s.allowances, key)
	delete(s.grants, key)

	kept := make([]journal.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Ledger != ledgerID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

// Balance Store implementation
func (s *Store) UpsertBalances(_ context.Context, ledgerID id.LedgerID, balances []book.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerID.String()
	rows, ok := s.balances[key]
	if !ok {
		rows = make(map[types.Address]types.Amount)
		s.balances[key] = rows
	}
	for _, b := range balances {
		rows[b.Address] = b.Amount
	}
	return nil
}

func (s *Store) GetBalance(_ context.Context, ledgerID id.LedgerID, addr types.Address) (*book.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	amount := s.balances[ledgerID.String()][addr]
	return &book.Balance{Address: addr, Amount: amount}, nil
}

func (s *Store) ListBalances(_ context.Context, ledgerID id.LedgerID) ([]book.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.balances[ledgerID.String()]
	result := make([]book.Balance, 0, len(rows))
	for addr, amount := range rows {
		result = append(result, book.Balance{Address: addr, Amount: amount})
	}
	return result, nil
}

// Allowance Store implementation
func (s *Store) UpsertAllowances(_ context.Context, ledgerID id.LedgerID, allowances []book.Allowance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerID.String()
	rows, ok := s.allowances[key]
	if !ok {
		rows = make(map[allowanceKey]types.Amount)
		s.allowances[key] = rows
	}
	for _, a := range allowances {
		rows[allowanceKey{owner: a.Owner, spender: a.Spender}] = a.Amount
	}
	return nil
}

func (s *Store) ListAllowances(_ context.Context, ledgerID id.LedgerID) ([]book.Allowance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.allowances[ledgerID.String()]
	result := make([]book.Allowance, 0, len(rows))
	for k, amount := range rows {
		result = append(result, book.Allowance{Owner: k.owner, Spender: k.spender, Amount: amount})
	}
	return result, nil
}

// Role Store implementation
func (s *Store) GrantRole(_ context.Context, ledgerID id.LedgerID, g book.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerID.String()
	rows, ok := s.grants[key]
	if !ok {
		rows = make(map[book.Grant]struct{})
		s.grants[key] = rows
	}
	rows[g] = struct{}{}
	return nil
}

func (s *Store) RevokeRole(_ context.Context, ledgerID id.LedgerID, g book.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants[ledgerID.String()], g)
	return nil
}

func (s *Store) ListGrants(_ context.Context, ledgerID id.LedgerID) ([]book.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.grants[ledgerID.String()]
	result := make([]book.Grant, 0, len(rows))
	for g := range rows {
		result = append(result, g)
	}
	return result, nil
}

// Journal Store implementation
func (s *Store) AppendEntries(_ context.Context, entries []*journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.entries = append(s.entries, *e)
	}
	return nil
}

func (s *Store) ListEntries(_ context.Context, ledgerID id.LedgerID, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first, matching the database backends.
	matched := make([]*journal.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.Ledger != ledgerID {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if !opts.Actor.IsZero() && e.Actor != opts.Actor {
			continue
		}
		if !opts.Account.IsZero() && e.From != opts.Account && e.To != opts.Account {
			continue
		}
		if !opts.Since.IsZero() && e.CreatedAt.Before(opts.Since) {
			continue
		}
		clone := e
		matched = append(matched, &clone)
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *Store) PurgeEntries(_ context.Context, ledgerID id.LedgerID, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	kept := make([]journal.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Ledger == ledgerID && e.CreatedAt.Before(before) {
			count++
		} else {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return count, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
