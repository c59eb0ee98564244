package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/store/memory"
	"github.com/xraph/treasury/types"
)

var _ store.Store = (*memory.Store)(nil)

const (
	admin = types.Address("acct_admin")
	alice = types.Address("acct_alice")
	bob   = types.Address("acct_bob")
)

func newLedgerRow(lid id.LedgerID) *store.Ledger {
	return &store.Ledger{
		ID:     lid,
		Name:   "Test Credits",
		Symbol: "TST",
		Cap:    types.Units(1000),
		Supply: types.Zero(),
		Status: book.StatusActive,
		Entity: types.NewEntity(),
	}
}

func TestLedgerCRUD(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lid := id.NewLedgerID()

	if _, err := s.GetLedger(ctx, lid); !errors.Is(err, treasury.ErrLedgerNotFound) {
		t.Fatalf("GetLedger(unknown) error = %v, want ErrLedgerNotFound", err)
	}

	if err := s.CreateLedger(ctx, newLedgerRow(lid)); err != nil {
		t.Fatalf("CreateLedger() error = %v", err)
	}
	if err := s.CreateLedger(ctx, newLedgerRow(lid)); !errors.Is(err, treasury.ErrAlreadyExists) {
		t.Fatalf("duplicate CreateLedger() error = %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetLedger(ctx, lid)
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if got.Name != "Test Credits" || got.Symbol != "TST" || !got.Cap.Equal(types.Units(1000)) {
		t.Errorf("GetLedger() = %s/%s cap=%s, want Test Credits/TST/1000", got.Name, got.Symbol, got.Cap)
	}

	// Returned rows are detached copies.
	got.Name = "mutated"
	again, err := s.GetLedger(ctx, lid)
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if again.Name != "Test Credits" {
		t.Error("mutating a returned row changed the stored ledger")
	}

	update := newLedgerRow(lid)
	update.Supply = types.Units(400)
	update.Status = book.StatusPaused
	if err := s.UpdateLedger(ctx, update); err != nil {
		t.Fatalf("UpdateLedger() error = %v", err)
	}
	got, err = s.GetLedger(ctx, lid)
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if !got.Supply.Equal(types.Units(400)) || got.Status != book.StatusPaused {
		t.Errorf("updated row supply=%s status=%s, want 400/paused", got.Supply, got.Status)
	}

	if err := s.UpdateLedger(ctx, newLedgerRow(id.NewLedgerID())); !errors.Is(err, treasury.ErrLedgerNotFound) {
		t.Fatalf("UpdateLedger(unknown) error = %v, want ErrLedgerNotFound", err)
	}

	other := id.NewLedgerID()
	if err := s.CreateLedger(ctx, newLedgerRow(other)); err != nil {
		t.Fatalf("CreateLedger() error = %v", err)
	}
	ledgers, err := s.ListLedgers(ctx)
	if err != nil {
		t.Fatalf("ListLedgers() error = %v", err)
	}
	if len(ledgers) != 2 {
		t.Errorf("ListLedgers() returned %d ledgers, want 2", len(ledgers))
	}
}

func TestDeleteLedgerRemovesChildren(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lid := id.NewLedgerID()
	other := id.NewLedgerID()

	for _, l := range []id.LedgerID{lid, other} {
		if err := s.CreateLedger(ctx, newLedgerRow(l)); err != nil {
			t.Fatalf("CreateLedger() error = %v", err)
		}
		if err := s.UpsertBalances(ctx, l, []book.Balance{{Address: alice, Amount: types.Units(10)}}); err != nil {
			t.Fatalf("UpsertBalances() error = %v", err)
		}
		if err := s.UpsertAllowances(ctx, l, []book.Allowance{{Owner: alice, Spender: bob, Amount: types.Units(5)}}); err != nil {
			t.Fatalf("UpsertAllowances() error = %v", err)
		}
		if err := s.GrantRole(ctx, l, book.Grant{Role: types.RoleAdmin, Address: admin}); err != nil {
			t.Fatalf("GrantRole() error = %v", err)
		}
		if err := s.AppendEntries(ctx, []*journal.Entry{journal.Mint(l, admin, alice, types.Units(10), types.Units(10))}); err != nil {
			t.Fatalf("AppendEntries() error = %v", err)
		}
	}

	if err := s.DeleteLedger(ctx, lid); err != nil {
		t.Fatalf("DeleteLedger() error = %v", err)
	}

	if _, err := s.GetLedger(ctx, lid); !errors.Is(err, treasury.ErrLedgerNotFound) {
		t.Errorf("GetLedger(deleted) error = %v, want ErrLedgerNotFound", err)
	}
	balances, err := s.ListBalances(ctx, lid)
	if err != nil {
		t.Fatalf("ListBalances() error = %v", err)
	}
	if len(balances) != 0 {
		t.Errorf("ListBalances(deleted) returned %d rows, want 0", len(balances))
	}
	grants, err := s.ListGrants(ctx, lid)
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("ListGrants(deleted) returned %d rows, want 0", len(grants))
	}
	entries, err := s.ListEntries(ctx, lid, journal.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ListEntries(deleted) returned %d entries, want 0", len(entries))
	}

	// The sibling ledger is untouched.
	entries, err = s.ListEntries(ctx, other, journal.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ListEntries(sibling) returned %d entries, want 1", len(entries))
	}
}

func TestBalances(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lid := id.NewLedgerID()

	// Unknown accounts hold zero rather than erroring.
	bal, err := s.GetBalance(ctx, lid, alice)
	if err != nil {
		t.Fatalf("GetBalance(unknown) error = %v", err)
	}
	if bal.Address != alice || !bal.Amount.IsZero() {
		t.Errorf("GetBalance(unknown) = %s/%s, want alice/0", bal.Address, bal.Amount)
	}

	if err := s.UpsertBalances(ctx, lid, []book.Balance{
		{Address: alice, Amount: types.Units(100)},
		{Address: bob, Amount: types.Units(50)},
	}); err != nil {
		t.Fatalf("UpsertBalances() error = %v", err)
	}
	bal, err = s.GetBalance(ctx, lid, alice)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if !bal.Amount.Equal(types.Units(100)) {
		t.Errorf("GetBalance(alice) = %s, want 100", bal.Amount)
	}

	// Upserting again overwrites; a zero amount records an emptied account.
	if err := s.UpsertBalances(ctx, lid, []book.Balance{{Address: alice, Amount: types.Zero()}}); err != nil {
		t.Fatalf("UpsertBalances() error = %v", err)
	}
	bal, err = s.GetBalance(ctx, lid, alice)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if !bal.Amount.IsZero() {
		t.Errorf("GetBalance(alice) after zero upsert = %s, want 0", bal.Amount)
	}

	rows, err := s.ListBalances(ctx, lid)
	if err != nil {
		t.Fatalf("ListBalances() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("ListBalances() returned %d rows, want 2", len(rows))
	}

	// Rows belong to their ledger only.
	rows, err = s.ListBalances(ctx, id.NewLedgerID())
	if err != nil {
		t.Fatalf("ListBalances() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("ListBalances(other) returned %d rows, want 0", len(rows))
	}
}

func TestAllowances(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lid := id.NewLedgerID()

	if err := s.UpsertAllowances(ctx, lid, []book.Allowance{{Owner: alice, Spender: bob, Amount: types.Units(50)}}); err != nil {
		t.Fatalf("UpsertAllowances() error = %v", err)
	}
	if err := s.UpsertAllowances(ctx, lid, []book.Allowance{{Owner: alice, Spender: bob, Amount: types.Units(20)}}); err != nil {
		t.Fatalf("UpsertAllowances() error = %v", err)
	}

	rows, err := s.ListAllowances(ctx, lid)
	if err != nil {
		t.Fatalf("ListAllowances() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ListAllowances() returned %d rows, want 1", len(rows))
	}
	if rows[0].Owner != alice || rows[0].Spender != bob || !rows[0].Amount.Equal(types.Units(20)) {
		t.Errorf("ListAllowances() = %+v, want alice→bob 20", rows[0])
	}

	rows, err = s.ListAllowances(ctx, id.NewLedgerID())
	if err != nil {
		t.Fatalf("ListAllowances() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("ListAllowances(other) returned %d rows, want 0", len(rows))
	}
}

func TestGrants(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lid := id.NewLedgerID()

	g := book.Grant{Role: types.RoleMinter, Address: alice}
	if err := s.GrantRole(ctx, lid, g); err != nil {
		t.Fatalf("GrantRole() error = %v", err)
	}
	// Re-granting is idempotent.
	if err := s.GrantRole(ctx, lid, g); err != nil {
		t.Fatalf("second GrantRole() error = %v", err)
	}
	if err := s.GrantRole(ctx, lid, book.Grant{Role: types.RoleAdmin, Address: admin}); err != nil {
		t.Fatalf("GrantRole() error = %v", err)
	}

	grants, err := s.ListGrants(ctx, lid)
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != 2 {
		t.Errorf("ListGrants() returned %d grants, want 2", len(grants))
	}

	if err := s.RevokeRole(ctx, lid, g); err != nil {
		t.Fatalf("RevokeRole() error = %v", err)
	}
	// Revoking a missing grant is a no-op.
	if err := s.RevokeRole(ctx, lid, g); err != nil {
		t.Fatalf("second RevokeRole() error = %v", err)
	}

	grants, err = s.ListGrants(ctx, lid)
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("ListGrants() after revoke returned %d grants, want 1", len(grants))
	}
	if grants[0].Role != types.RoleAdmin || grants[0].Address != admin {
		t.Errorf("remaining grant = %+v, want admin/admin", grants[0])
	}
}

func TestJournalEntries(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lid := id.NewLedgerID()
	other := id.NewLedgerID()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	e1 := journal.Mint(lid, admin, alice, types.Units(100), types.Units(100))
	e1.CreatedAt = base
	e2 := journal.Transfer(lid, alice, bob, types.Units(30), types.Units(100))
	e2.CreatedAt = base.Add(time.Minute)
	e3 := journal.Burn(lid, bob, types.Units(10), types.Units(90))
	e3.CreatedAt = base.Add(2 * time.Minute)
	foreign := journal.Mint(other, admin, alice, types.Units(1), types.Units(1))
	foreign.CreatedAt = base

	if err := s.AppendEntries(ctx, []*journal.Entry{e1, e2, e3, foreign}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	tests := []struct {
		name    string
		opts    journal.ListOpts
		wantIDs []id.JournalID
	}{
		{
			name:    "newest first",
			opts:    journal.ListOpts{},
			wantIDs: []id.JournalID{e3.ID, e2.ID, e1.ID},
		},
		{
			name:    "by kind",
			opts:    journal.ListOpts{Kind: journal.KindTransfer},
			wantIDs: []id.JournalID{e2.ID},
		},
		{
			name:    "by actor",
			opts:    journal.ListOpts{Actor: bob},
			wantIDs: []id.JournalID{e3.ID},
		},
		{
			name:    "account matches either side",
			opts:    journal.ListOpts{Account: bob},
			wantIDs: []id.JournalID{e3.ID, e2.ID},
		},
		{
			name:    "since is inclusive",
			opts:    journal.ListOpts{Since: base.Add(time.Minute)},
			wantIDs: []id.JournalID{e3.ID, e2.ID},
		},
		{
			name:    "limit",
			opts:    journal.ListOpts{Limit: 1},
			wantIDs: []id.JournalID{e3.ID},
		},
		{
			name:    "limit with offset",
			opts:    journal.ListOpts{Limit: 2, Offset: 1},
			wantIDs: []id.JournalID{e2.ID, e1.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.ListEntries(ctx, lid, tt.opts)
			if err != nil {
				t.Fatalf("ListEntries() error = %v", err)
			}
			if len(entries) != len(tt.wantIDs) {
				t.Fatalf("ListEntries() returned %d entries, want %d", len(entries), len(tt.wantIDs))
			}
			for i, e := range entries {
				if e.ID != tt.wantIDs[i] {
					t.Errorf("entry %d = %s, want %s", i, e.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestPurgeEntries(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	lid := id.NewLedgerID()
	other := id.NewLedgerID()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	e1 := journal.Mint(lid, admin, alice, types.Units(100), types.Units(100))
	e1.CreatedAt = base
	e2 := journal.Transfer(lid, alice, bob, types.Units(30), types.Units(100))
	e2.CreatedAt = base.Add(time.Minute)
	foreign := journal.Mint(other, admin, alice, types.Units(1), types.Units(1))
	foreign.CreatedAt = base

	if err := s.AppendEntries(ctx, []*journal.Entry{e1, e2, foreign}); err != nil {
		t.Fatalf("AppendEntries() error = %v", err)
	}

	// Strictly-before cutoff: e1 goes, e2 stays, the sibling ledger is
	// untouched.
	purged, err := s.PurgeEntries(ctx, lid, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeEntries() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeEntries() = %d, want 1", purged)
	}

	entries, err := s.ListEntries(ctx, lid, journal.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != e2.ID {
		t.Errorf("ListEntries() after purge returned %d entries, want only the newer one", len(entries))
	}

	entries, err = s.ListEntries(ctx, other, journal.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ListEntries(sibling) returned %d entries, want 1", len(entries))
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if err := s.Migrate(ctx); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
