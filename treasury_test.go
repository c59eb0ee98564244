package treasury_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/store/memory"
)

const (
	admin   = treasury.Address("acct_admin")
	mintSvc = treasury.Address("acct_mint_svc")
	alice   = treasury.Address("acct_alice")
	bob     = treasury.Address("acct_bob")
	carol   = treasury.Address("acct_carol")
)

func testConfig() treasury.Config {
	return treasury.Config{
		Name:     "Test Credits",
		Symbol:   "TST",
		Cap:      treasury.Units(1000),
		Deployer: admin,
	}
}

func quiet() treasury.Option {
	return treasury.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// manualFlush makes journal persistence explicit: nothing reaches the
// store until a test calls Flush or Stop.
func manualFlush() treasury.Option {
	return treasury.WithJournalConfig(1000, time.Hour)
}

func newTestTreasury(t *testing.T, st *memory.Store, cfg treasury.Config, opts ...treasury.Option) *treasury.Treasury {
	t.Helper()
	tr := treasury.New(st, cfg, append([]treasury.Option{quiet(), manualFlush()}, opts...)...)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = tr.Stop() })
	return tr
}

func mustFlush(t *testing.T, tr *treasury.Treasury) {
	t.Helper()
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestStartGenesis(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	cfg := testConfig()
	cfg.InitialReceiver = alice
	cfg.InitialAmount = treasury.Units(250)

	tr := newTestTreasury(t, st, cfg)

	if got := tr.TotalSupply(); !got.Equal(treasury.Units(250)) {
		t.Errorf("TotalSupply() = %s, want 250", got)
	}
	if got := tr.BalanceOf(alice); !got.Equal(treasury.Units(250)) {
		t.Errorf("BalanceOf(alice) = %s, want 250", got)
	}
	if got := tr.Headroom(); !got.Equal(treasury.Units(750)) {
		t.Errorf("Headroom() = %s, want 750", got)
	}
	for _, role := range treasury.Roles() {
		if !tr.HasRole(role, admin) {
			t.Errorf("deployer missing role %s", role)
		}
	}

	// Genesis is persisted synchronously: the ledger row, the deployer's
	// grants and the genesis entry are all readable before any flush.
	row, err := st.GetLedger(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if row.Name != "Test Credits" || row.Symbol != "TST" {
		t.Errorf("ledger row = %s/%s, want Test Credits/TST", row.Name, row.Symbol)
	}
	if !row.Supply.Equal(treasury.Units(250)) {
		t.Errorf("ledger row supply = %s, want 250", row.Supply)
	}

	grants, err := st.ListGrants(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != len(treasury.Roles()) {
		t.Errorf("ListGrants() returned %d grants, want %d", len(grants), len(treasury.Roles()))
	}

	entries, err := st.ListEntries(ctx, tr.LedgerID(), journal.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ListEntries() returned %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Kind != journal.KindGenesis || e.Actor != admin || e.To != alice {
		t.Errorf("genesis entry kind=%s actor=%s to=%s, want genesis/admin/alice", e.Kind, e.Actor, e.To)
	}
	if !e.Amount.Equal(treasury.Units(250)) || !e.Supply.Equal(treasury.Units(250)) {
		t.Errorf("genesis entry amount=%s supply=%s, want 250/250", e.Amount, e.Supply)
	}
}

func TestStartTwice(t *testing.T) {
	tr := newTestTreasury(t, memory.New(), testConfig())

	if err := tr.Start(context.Background()); !errors.Is(err, treasury.ErrAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*treasury.Config)
		wantField string
	}{
		{
			name:      "missing name",
			mutate:    func(c *treasury.Config) { c.Name = "" },
			wantField: "name",
		},
		{
			name:      "missing symbol",
			mutate:    func(c *treasury.Config) { c.Symbol = "" },
			wantField: "symbol",
		},
		{
			name:      "zero cap",
			mutate:    func(c *treasury.Config) { c.Cap = treasury.Zero() },
			wantField: "cap",
		},
		{
			name:      "missing deployer",
			mutate:    func(c *treasury.Config) { c.Deployer = "" },
			wantField: "deployer",
		},
		{
			name:      "initial amount without receiver",
			mutate:    func(c *treasury.Config) { c.InitialAmount = treasury.Units(10) },
			wantField: "initial_receiver",
		},
		{
			name: "initial amount above cap",
			mutate: func(c *treasury.Config) {
				c.InitialReceiver = alice
				c.InitialAmount = treasury.Units(1001)
			},
			wantField: "initial_amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			tr := treasury.New(memory.New(), cfg, quiet())
			err := tr.Start(context.Background())
			if err == nil {
				_ = tr.Stop()
				t.Fatal("Start() succeeded with invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Start() error = %v, want mention of %q", err, tt.wantField)
			}
			// A failed start leaves the engine unusable.
			if mintErr := tr.Mint(context.Background(), admin, alice, treasury.Units(1)); !errors.Is(mintErr, treasury.ErrNotStarted) {
				t.Errorf("Mint() after failed start: error = %v, want ErrNotStarted", mintErr)
			}
		})
	}
}

func TestOperationsBeforeStart(t *testing.T) {
	ctx := context.Background()
	tr := treasury.New(memory.New(), testConfig(), quiet())

	ops := []struct {
		name string
		call func() error
	}{
		{"Mint", func() error { return tr.Mint(ctx, admin, alice, treasury.Units(1)) }},
		{"BatchMint", func() error {
			_, err := tr.BatchMint(ctx, admin, []treasury.Address{alice}, []treasury.Amount{treasury.Units(1)})
			return err
		}},
		{"Transfer", func() error { return tr.Transfer(ctx, alice, bob, treasury.Units(1)) }},
		{"TransferFrom", func() error { return tr.TransferFrom(ctx, carol, alice, bob, treasury.Units(1)) }},
		{"Burn", func() error { return tr.Burn(ctx, alice, treasury.Units(1)) }},
		{"BurnFrom", func() error { return tr.BurnFrom(ctx, carol, alice, treasury.Units(1)) }},
		{"Approve", func() error { return tr.Approve(ctx, alice, bob, treasury.Units(1)) }},
		{"Pause", func() error { return tr.Pause(ctx, admin) }},
		{"Unpause", func() error { return tr.Unpause(ctx, admin) }},
		{"GrantRole", func() error { return tr.GrantRole(ctx, admin, treasury.RoleMinter, alice) }},
		{"RevokeRole", func() error { return tr.RevokeRole(ctx, admin, treasury.RoleMinter, alice) }},
		{"Snapshot", func() error { _, err := tr.Snapshot(); return err }},
		{"Info", func() error { _, err := tr.Info(); return err }},
		{"History", func() error { _, err := tr.History(ctx, journal.ListOpts{}); return err }},
		{"PurgeJournal", func() error { _, err := tr.PurgeJournal(ctx, time.Now()); return err }},
		{"Flush", func() error { return tr.Flush(ctx) }},
		{"Stop", func() error { return tr.Stop() }},
	}

	for _, op := range ops {
		if err := op.call(); !errors.Is(err, treasury.ErrNotStarted) {
			t.Errorf("%s before Start: error = %v, want ErrNotStarted", op.name, err)
		}
	}

	// Queries degrade to zero values rather than failing.
	if !tr.TotalSupply().IsZero() || !tr.BalanceOf(alice).IsZero() {
		t.Error("queries before Start returned non-zero amounts")
	}
	if tr.Paused() || tr.HasRole(treasury.RoleAdmin, admin) || tr.HolderCount() != 0 {
		t.Error("queries before Start reported live state")
	}
	if got := tr.Cap(); !got.Equal(treasury.Units(1000)) {
		t.Errorf("Cap() before Start = %s, want configured 1000", got)
	}
}

func TestMintJournalAndStoreSync(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tr := newTestTreasury(t, st, testConfig())

	if err := tr.Mint(ctx, admin, alice, treasury.Units(100)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	// Buffered entries are invisible until a flush.
	entries, err := tr.History(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != journal.KindGenesis {
		t.Fatalf("History() before flush returned %d entries, want only genesis", len(entries))
	}

	mustFlush(t, tr)

	entries, err = tr.History(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History() after flush returned %d entries, want 2", len(entries))
	}
	// Newest first.
	e := entries[0]
	if e.Kind != journal.KindMint || e.Actor != admin || e.To != alice {
		t.Errorf("mint entry kind=%s actor=%s to=%s, want mint/admin/alice", e.Kind, e.Actor, e.To)
	}
	if !e.Amount.Equal(treasury.Units(100)) || !e.Supply.Equal(treasury.Units(100)) {
		t.Errorf("mint entry amount=%s supply=%s, want 100/100", e.Amount, e.Supply)
	}
	if e.Ledger != tr.LedgerID() {
		t.Errorf("mint entry ledger = %s, want %s", e.Ledger, tr.LedgerID())
	}

	// The flush mirrors touched balances and the supply row into the store.
	bal, err := st.GetBalance(ctx, tr.LedgerID(), alice)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if !bal.Amount.Equal(treasury.Units(100)) {
		t.Errorf("stored balance = %s, want 100", bal.Amount)
	}
	row, err := st.GetLedger(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if !row.Supply.Equal(treasury.Units(100)) {
		t.Errorf("stored supply = %s, want 100", row.Supply)
	}
}

func TestBatchMintJournal(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tr := newTestTreasury(t, st, testConfig())

	total, err := tr.BatchMint(ctx, admin,
		[]treasury.Address{alice, bob},
		[]treasury.Amount{treasury.Units(10), treasury.Units(20)},
	)
	if err != nil {
		t.Fatalf("BatchMint() error = %v", err)
	}
	if !total.Equal(treasury.Units(30)) {
		t.Errorf("BatchMint() total = %s, want 30", total)
	}

	mustFlush(t, tr)

	entries, err := tr.History(ctx, journal.ListOpts{Kind: journal.KindBatchMint})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("History(batch_mint) returned %d entries, want 1", len(entries))
	}
	e := entries[0]
	if len(e.Recipients) != 2 || len(e.Amounts) != 2 {
		t.Fatalf("batch entry recipients/amounts = %d/%d, want 2/2", len(e.Recipients), len(e.Amounts))
	}
	if !e.Amount.Equal(treasury.Units(30)) || !e.Supply.Equal(treasury.Units(30)) {
		t.Errorf("batch entry total=%s supply=%s, want 30/30", e.Amount, e.Supply)
	}

	for _, tc := range []struct {
		addr treasury.Address
		want treasury.Amount
	}{
		{alice, treasury.Units(10)},
		{bob, treasury.Units(20)},
	} {
		bal, err := st.GetBalance(ctx, tr.LedgerID(), tc.addr)
		if err != nil {
			t.Fatalf("GetBalance(%s) error = %v", tc.addr, err)
		}
		if !bal.Amount.Equal(tc.want) {
			t.Errorf("stored balance of %s = %s, want %s", tc.addr, bal.Amount, tc.want)
		}
	}
}

func TestBatchMintEmptyJournalsNothing(t *testing.T) {
	ctx := context.Background()
	tr := newTestTreasury(t, memory.New(), testConfig())

	total, err := tr.BatchMint(ctx, admin, nil, nil)
	if err != nil {
		t.Fatalf("BatchMint() error = %v", err)
	}
	if !total.IsZero() {
		t.Errorf("BatchMint() total = %s, want 0", total)
	}

	mustFlush(t, tr)

	entries, err := tr.History(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != journal.KindGenesis {
		t.Fatalf("History() after empty batch returned %d entries, want genesis only", len(entries))
	}
}

func TestRejectedOperationsJournalNothing(t *testing.T) {
	ctx := context.Background()
	tr := newTestTreasury(t, memory.New(), testConfig())

	if err := tr.Mint(ctx, alice, alice, treasury.Units(1)); !errors.Is(err, treasury.ErrUnauthorized) {
		t.Errorf("Mint() by non-minter: error = %v, want ErrUnauthorized", err)
	}
	if err := tr.Mint(ctx, admin, alice, treasury.Units(2000)); !errors.Is(err, treasury.ErrCapExceeded) {
		t.Errorf("Mint() above cap: error = %v, want ErrCapExceeded", err)
	}
	if _, err := tr.BatchMint(ctx, admin, []treasury.Address{alice, bob}, []treasury.Amount{treasury.Units(1)}); !errors.Is(err, treasury.ErrLengthMismatch) {
		t.Errorf("BatchMint() mismatched: error = %v, want ErrLengthMismatch", err)
	}
	if err := tr.Transfer(ctx, alice, bob, treasury.Units(1)); !errors.Is(err, treasury.ErrInsufficientBalance) {
		t.Errorf("Transfer() overdrawn: error = %v, want ErrInsufficientBalance", err)
	}

	mustFlush(t, tr)

	entries, err := tr.History(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != journal.KindGenesis {
		t.Fatalf("rejected operations were journaled: %d entries", len(entries))
	}
	if !tr.TotalSupply().IsZero() {
		t.Errorf("TotalSupply() = %s after rejections, want 0", tr.TotalSupply())
	}
}

func TestAllowanceSync(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tr := newTestTreasury(t, st, testConfig())

	if err := tr.Mint(ctx, admin, alice, treasury.Units(100)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if err := tr.Approve(ctx, alice, carol, treasury.Units(50)); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	mustFlush(t, tr)

	rows, err := st.ListAllowances(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("ListAllowances() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Owner != alice || rows[0].Spender != carol || !rows[0].Amount.Equal(treasury.Units(50)) {
		t.Fatalf("ListAllowances() = %+v, want alice→carol 50", rows)
	}

	// A delegated spend re-syncs the charged pair.
	if err := tr.TransferFrom(ctx, carol, alice, bob, treasury.Units(30)); err != nil {
		t.Fatalf("TransferFrom() error = %v", err)
	}
	mustFlush(t, tr)

	rows, err = st.ListAllowances(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("ListAllowances() error = %v", err)
	}
	if len(rows) != 1 || !rows[0].Amount.Equal(treasury.Units(20)) {
		t.Fatalf("stored allowance after spend = %+v, want 20", rows)
	}
	if got := tr.Allowance(alice, carol); !got.Equal(treasury.Units(20)) {
		t.Errorf("Allowance() = %s, want 20", got)
	}

	// Delegated moves journal the spender as actor and the owner as from.
	entries, err := tr.History(ctx, journal.ListOpts{Kind: journal.KindTransfer})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("History(transfer) returned %d entries, want 1", len(entries))
	}
	if e := entries[0]; e.Actor != carol || e.From != alice || e.To != bob {
		t.Errorf("delegated entry actor=%s from=%s to=%s, want carol/alice/bob", e.Actor, e.From, e.To)
	}
}

func TestDrainedBalanceSyncsZero(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tr := newTestTreasury(t, st, testConfig())

	if err := tr.Mint(ctx, admin, alice, treasury.Units(10)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	mustFlush(t, tr)

	if err := tr.Transfer(ctx, alice, bob, treasury.Units(10)); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	mustFlush(t, tr)

	// The emptied account must be written back as zero, not left stale.
	bal, err := st.GetBalance(ctx, tr.LedgerID(), alice)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if !bal.Amount.IsZero() {
		t.Errorf("stored balance of drained account = %s, want 0", bal.Amount)
	}
	if got := tr.HolderCount(); got != 1 {
		t.Errorf("HolderCount() = %d, want 1", got)
	}
}

func TestPauseLifecycle(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tr := newTestTreasury(t, st, testConfig())

	if err := tr.Pause(ctx, alice); !errors.Is(err, treasury.ErrUnauthorized) {
		t.Fatalf("Pause() by non-pauser: error = %v, want ErrUnauthorized", err)
	}
	if err := tr.Pause(ctx, admin); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if !tr.Paused() {
		t.Fatal("Paused() = false after Pause")
	}

	if err := tr.Mint(ctx, admin, alice, treasury.Units(1)); !errors.Is(err, treasury.ErrPaused) {
		t.Errorf("Mint() while paused: error = %v, want ErrPaused", err)
	}
	// Role administration stays available during a pause.
	if err := tr.GrantRole(ctx, admin, treasury.RoleMinter, bob); err != nil {
		t.Errorf("GrantRole() while paused: error = %v", err)
	}

	// Pausing an already-paused ledger is accepted but journals nothing.
	if err := tr.Pause(ctx, admin); err != nil {
		t.Fatalf("second Pause() error = %v", err)
	}

	mustFlush(t, tr)
	entries, err := tr.History(ctx, journal.ListOpts{Kind: journal.KindPause})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("History(pause) returned %d entries, want 1", len(entries))
	}
	row, err := st.GetLedger(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if row.Status != book.StatusPaused {
		t.Errorf("stored status = %s, want paused", row.Status)
	}

	if err := tr.Unpause(ctx, admin); err != nil {
		t.Fatalf("Unpause() error = %v", err)
	}
	if err := tr.Unpause(ctx, admin); err != nil {
		t.Fatalf("second Unpause() error = %v", err)
	}
	if err := tr.Mint(ctx, admin, alice, treasury.Units(1)); err != nil {
		t.Fatalf("Mint() after Unpause: error = %v", err)
	}

	mustFlush(t, tr)
	entries, err = tr.History(ctx, journal.ListOpts{Kind: journal.KindUnpause})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("History(unpause) returned %d entries, want 1", len(entries))
	}
}

func TestRoleChangesSyncToStore(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tr := newTestTreasury(t, st, testConfig())

	if err := tr.GrantRole(ctx, admin, treasury.RoleMinter, mintSvc); err != nil {
		t.Fatalf("GrantRole() error = %v", err)
	}
	// Granting an already-held role succeeds but journals nothing.
	if err := tr.GrantRole(ctx, admin, treasury.RoleMinter, mintSvc); err != nil {
		t.Fatalf("second GrantRole() error = %v", err)
	}
	mustFlush(t, tr)

	grants, err := st.ListGrants(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != len(treasury.Roles())+1 {
		t.Errorf("ListGrants() returned %d grants, want %d", len(grants), len(treasury.Roles())+1)
	}
	entries, err := tr.History(ctx, journal.ListOpts{Kind: journal.KindGrant})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("History(grant) returned %d entries, want 1", len(entries))
	}
	if e := entries[0]; e.Role != treasury.RoleMinter || e.To != mintSvc || e.Actor != admin {
		t.Errorf("grant entry role=%s to=%s actor=%s, want minter/mint_svc/admin", e.Role, e.To, e.Actor)
	}

	if err := tr.Mint(ctx, mintSvc, alice, treasury.Units(5)); err != nil {
		t.Fatalf("Mint() by granted minter: error = %v", err)
	}

	if err := tr.RevokeRole(ctx, admin, treasury.RoleMinter, mintSvc); err != nil {
		t.Fatalf("RevokeRole() error = %v", err)
	}
	if err := tr.Mint(ctx, mintSvc, alice, treasury.Units(5)); !errors.Is(err, treasury.ErrUnauthorized) {
		t.Errorf("Mint() after revoke: error = %v, want ErrUnauthorized", err)
	}
	mustFlush(t, tr)

	grants, err = st.ListGrants(ctx, tr.LedgerID())
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != len(treasury.Roles()) {
		t.Errorf("ListGrants() after revoke returned %d grants, want %d", len(grants), len(treasury.Roles()))
	}
}

func TestHistoryFilters(t *testing.T) {
	ctx := context.Background()
	tr := newTestTreasury(t, memory.New(), testConfig())

	if err := tr.Mint(ctx, admin, alice, treasury.Units(100)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if _, err := tr.BatchMint(ctx, admin, []treasury.Address{bob, carol}, []treasury.Amount{treasury.Units(10), treasury.Units(20)}); err != nil {
		t.Fatalf("BatchMint() error = %v", err)
	}
	if err := tr.Transfer(ctx, alice, bob, treasury.Units(30)); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if err := tr.Approve(ctx, alice, carol, treasury.Units(5)); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := tr.Burn(ctx, bob, treasury.Units(10)); err != nil {
		t.Fatalf("Burn() error = %v", err)
	}
	mustFlush(t, tr)

	tests := []struct {
		name      string
		opts      journal.ListOpts
		wantKinds []journal.Kind
	}{
		{
			name: "unfiltered newest first",
			opts: journal.ListOpts{},
			wantKinds: []journal.Kind{
				journal.KindBurn, journal.KindApproval, journal.KindTransfer,
				journal.KindBatchMint, journal.KindMint, journal.KindGenesis,
			},
		},
		{
			name:      "by kind",
			opts:      journal.ListOpts{Kind: journal.KindTransfer},
			wantKinds: []journal.Kind{journal.KindTransfer},
		},
		{
			name:      "account matches either side",
			opts:      journal.ListOpts{Account: bob},
			wantKinds: []journal.Kind{journal.KindBurn, journal.KindTransfer},
		},
		{
			name:      "batch recipients are not account matches",
			opts:      journal.ListOpts{Account: carol},
			wantKinds: []journal.Kind{journal.KindApproval},
		},
		{
			name:      "by actor",
			opts:      journal.ListOpts{Actor: admin},
			wantKinds: []journal.Kind{journal.KindBatchMint, journal.KindMint, journal.KindGenesis},
		},
		{
			name:      "limit",
			opts:      journal.ListOpts{Limit: 2},
			wantKinds: []journal.Kind{journal.KindBurn, journal.KindApproval},
		},
		{
			name:      "limit with offset",
			opts:      journal.ListOpts{Limit: 2, Offset: 2},
			wantKinds: []journal.Kind{journal.KindTransfer, journal.KindBatchMint},
		},
		{
			name:      "since future",
			opts:      journal.ListOpts{Since: time.Now().Add(time.Hour)},
			wantKinds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := tr.History(ctx, tt.opts)
			if err != nil {
				t.Fatalf("History() error = %v", err)
			}
			if len(entries) != len(tt.wantKinds) {
				t.Fatalf("History() returned %d entries, want %d", len(entries), len(tt.wantKinds))
			}
			for i, e := range entries {
				if e.Kind != tt.wantKinds[i] {
					t.Errorf("entry %d kind = %s, want %s", i, e.Kind, tt.wantKinds[i])
				}
			}
		})
	}
}

func TestStopDrainsJournal(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tr := treasury.New(st, testConfig(), quiet(), manualFlush())
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := tr.Mint(ctx, admin, alice, treasury.Units(100)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if err := tr.Transfer(ctx, alice, bob, treasury.Units(40)); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	// Stop must push buffered entries and the state sync out before
	// returning.
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	entries, err := st.ListEntries(ctx, tr.LedgerID(), journal.ListOpts{})
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ListEntries() after Stop returned %d entries, want 3", len(entries))
	}
	bal, err := st.GetBalance(ctx, tr.LedgerID(), bob)
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if !bal.Amount.Equal(treasury.Units(40)) {
		t.Errorf("stored balance after Stop = %s, want 40", bal.Amount)
	}

	if err := tr.Stop(); !errors.Is(err, treasury.ErrNotStarted) {
		t.Errorf("second Stop() error = %v, want ErrNotStarted", err)
	}
	if err := tr.Mint(ctx, admin, alice, treasury.Units(1)); !errors.Is(err, treasury.ErrNotStarted) {
		t.Errorf("Mint() after Stop: error = %v, want ErrNotStarted", err)
	}
}

func TestRestoreFromStore(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	cfg := testConfig()
	cfg.InitialReceiver = alice
	cfg.InitialAmount = treasury.Units(100)

	tr1 := treasury.New(st, cfg, quiet(), manualFlush())
	if err := tr1.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ledgerID := tr1.LedgerID()

	if err := tr1.GrantRole(ctx, admin, treasury.RoleMinter, mintSvc); err != nil {
		t.Fatalf("GrantRole() error = %v", err)
	}
	if err := tr1.Mint(ctx, mintSvc, bob, treasury.Units(50)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if err := tr1.Approve(ctx, alice, carol, treasury.Units(10)); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := tr1.Pause(ctx, admin); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := tr1.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// A second engine pinned to the same ledger rebuilds everything from
	// the store; stored identity beats the configured one.
	tr2 := treasury.New(st, treasury.Config{Name: "Wrong Name"}, quiet(), manualFlush(), treasury.WithLedgerID(ledgerID))
	if err := tr2.Start(ctx); err != nil {
		t.Fatalf("restore Start() error = %v", err)
	}
	t.Cleanup(func() { _ = tr2.Stop() })

	if got := tr2.Name(); got != "Test Credits" {
		t.Errorf("Name() = %q, want stored %q", got, "Test Credits")
	}
	if got := tr2.Symbol(); got != "TST" {
		t.Errorf("Symbol() = %q, want stored %q", got, "TST")
	}
	if got := tr2.Cap(); !got.Equal(treasury.Units(1000)) {
		t.Errorf("Cap() = %s, want 1000", got)
	}
	if got := tr2.TotalSupply(); !got.Equal(treasury.Units(150)) {
		t.Errorf("TotalSupply() = %s, want 150", got)
	}
	if got := tr2.BalanceOf(alice); !got.Equal(treasury.Units(100)) {
		t.Errorf("BalanceOf(alice) = %s, want 100", got)
	}
	if got := tr2.BalanceOf(bob); !got.Equal(treasury.Units(50)) {
		t.Errorf("BalanceOf(bob) = %s, want 50", got)
	}
	if got := tr2.Allowance(alice, carol); !got.Equal(treasury.Units(10)) {
		t.Errorf("Allowance() = %s, want 10", got)
	}
	if !tr2.HasRole(treasury.RoleMinter, mintSvc) {
		t.Error("restored engine lost the minter grant")
	}
	if !tr2.Paused() {
		t.Error("restored engine lost the pause flag")
	}

	// The restored ledger keeps operating where the old one left off.
	if err := tr2.Unpause(ctx, admin); err != nil {
		t.Fatalf("Unpause() error = %v", err)
	}
	if err := tr2.Mint(ctx, mintSvc, carol, treasury.Units(5)); err != nil {
		t.Fatalf("Mint() on restored ledger: error = %v", err)
	}
	if got := tr2.TotalSupply(); !got.Equal(treasury.Units(155)) {
		t.Errorf("TotalSupply() after restored mint = %s, want 155", got)
	}
}

func TestRestoreCapMismatch(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	tr1 := treasury.New(st, testConfig(), quiet(), manualFlush())
	if err := tr1.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ledgerID := tr1.LedgerID()
	if err := tr1.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// The stored cap is immutable; a disagreeing config must not start.
	tr2 := treasury.New(st, treasury.Config{Cap: treasury.Units(500)}, quiet(), treasury.WithLedgerID(ledgerID))
	if err := tr2.Start(ctx); !errors.Is(err, treasury.ErrCapMismatch) {
		t.Fatalf("Start() with wrong cap: error = %v, want ErrCapMismatch", err)
	}

	tr3 := treasury.New(st, treasury.Config{Cap: treasury.Units(1000)}, quiet(), manualFlush(), treasury.WithLedgerID(ledgerID))
	if err := tr3.Start(ctx); err != nil {
		t.Fatalf("Start() with matching cap: error = %v", err)
	}
	_ = tr3.Stop()
}

func TestPurgeJournal(t *testing.T) {
	ctx := context.Background()
	tr := newTestTreasury(t, memory.New(), testConfig())

	if err := tr.Mint(ctx, admin, alice, treasury.Units(100)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if err := tr.Transfer(ctx, alice, bob, treasury.Units(30)); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	mustFlush(t, tr)

	purged, err := tr.PurgeJournal(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeJournal() error = %v", err)
	}
	if purged != 3 {
		t.Errorf("PurgeJournal() = %d, want 3", purged)
	}

	entries, err := tr.History(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("History() after purge returned %d entries, want 0", len(entries))
	}

	// Purging trims the audit trail only; balances are untouched.
	if got := tr.BalanceOf(bob); !got.Equal(treasury.Units(30)) {
		t.Errorf("BalanceOf(bob) = %s after purge, want 30", got)
	}
	if got := tr.TotalSupply(); !got.Equal(treasury.Units(100)) {
		t.Errorf("TotalSupply() = %s after purge, want 100", got)
	}
}

func TestSnapshotAndInfo(t *testing.T) {
	ctx := context.Background()
	tr := newTestTreasury(t, memory.New(), testConfig())

	if err := tr.Mint(ctx, admin, alice, treasury.Units(100)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	snap, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snap.Supply.Equal(treasury.Units(100)) || len(snap.Balances) != 1 {
		t.Fatalf("snapshot supply=%s balances=%d, want 100/1", snap.Supply, len(snap.Balances))
	}

	// The snapshot is detached from the live engine.
	if err := tr.Mint(ctx, admin, bob, treasury.Units(50)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if !snap.Supply.Equal(treasury.Units(100)) || len(snap.Balances) != 1 {
		t.Error("snapshot mutated by a later operation")
	}

	info, err := tr.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.ID != tr.LedgerID() || info.Name != "Test Credits" || info.Symbol != "TST" {
		t.Errorf("Info() = %s %s/%s, want own ledger Test Credits/TST", info.ID, info.Name, info.Symbol)
	}
	if !info.Supply.Equal(treasury.Units(150)) || !info.Cap.Equal(treasury.Units(1000)) {
		t.Errorf("Info() supply=%s cap=%s, want 150/1000", info.Supply, info.Cap)
	}
	if info.Status != book.StatusActive {
		t.Errorf("Info() status = %s, want active", info.Status)
	}
}

// acctValidator enforces the acct_ prefix used throughout these tests.
type acctValidator struct{}

var _ plugin.AddressValidator = acctValidator{}

func (acctValidator) Name() string { return "acct-validator" }

func (acctValidator) ValidateAddress(addr treasury.Address) error {
	if !strings.HasPrefix(string(addr), "acct_") {
		return errors.New("address must start with acct_")
	}
	return nil
}

func TestAddressValidatorPlugin(t *testing.T) {
	ctx := context.Background()
	tr := newTestTreasury(t, memory.New(), testConfig(), treasury.WithPlugin(acctValidator{}))

	if err := tr.Mint(ctx, admin, "ext_0xdead", treasury.Units(1)); err == nil {
		t.Fatal("Mint() to invalid address succeeded")
	}
	if !tr.TotalSupply().IsZero() {
		t.Errorf("TotalSupply() = %s after rejected mint, want 0", tr.TotalSupply())
	}
	if _, err := tr.BatchMint(ctx, admin, []treasury.Address{alice, "ext_0xdead"}, []treasury.Amount{treasury.Units(1), treasury.Units(1)}); err == nil {
		t.Fatal("BatchMint() with invalid recipient succeeded")
	}
	if got := tr.BalanceOf(alice); !got.IsZero() {
		t.Errorf("BalanceOf(alice) = %s after rejected batch, want 0", got)
	}

	if err := tr.Mint(ctx, admin, alice, treasury.Units(10)); err != nil {
		t.Fatalf("Mint() to valid address: error = %v", err)
	}
	if err := tr.Transfer(ctx, alice, "ext_0xdead", treasury.Units(1)); err == nil {
		t.Fatal("Transfer() to invalid address succeeded")
	}
	if err := tr.Approve(ctx, alice, "ext_0xdead", treasury.Units(1)); err == nil {
		t.Fatal("Approve() of invalid spender succeeded")
	}
}

func TestAddressValidatorGatesGenesis(t *testing.T) {
	cfg := testConfig()
	cfg.InitialReceiver = "ext_0xdead"
	cfg.InitialAmount = treasury.Units(10)

	tr := treasury.New(memory.New(), cfg, quiet(), treasury.WithPlugin(acctValidator{}))
	if err := tr.Start(context.Background()); err == nil {
		_ = tr.Stop()
		t.Fatal("Start() with invalid initial receiver succeeded")
	}
}

// recordingPlugin captures dispatched events for assertions.
type recordingPlugin struct {
	mu       sync.Mutex
	kinds    []journal.Kind
	rejected []journal.Kind
	capReqs  []treasury.Amount
	capRooms []treasury.Amount
}

var (
	_ plugin.OnEntry       = (*recordingPlugin)(nil)
	_ plugin.OnRejected    = (*recordingPlugin)(nil)
	_ plugin.OnCapExceeded = (*recordingPlugin)(nil)
)

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) OnEntry(_ context.Context, e *journal.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, e.Kind)
	return nil
}

func (p *recordingPlugin) OnRejected(_ context.Context, kind journal.Kind, _ treasury.Address, _ error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, kind)
	return nil
}

func (p *recordingPlugin) OnCapExceeded(_ context.Context, _ treasury.Address, requested, headroom treasury.Amount) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capReqs = append(p.capReqs, requested)
	p.capRooms = append(p.capRooms, headroom)
	return nil
}

func (p *recordingPlugin) seenKinds() []journal.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]journal.Kind(nil), p.kinds...)
}

func (p *recordingPlugin) seenRejected() []journal.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]journal.Kind(nil), p.rejected...)
}

func (p *recordingPlugin) lastCapExceeded() (requested, headroom treasury.Amount, calls int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.capReqs) == 0 {
		return treasury.Zero(), treasury.Zero(), 0
	}
	return p.capReqs[len(p.capReqs)-1], p.capRooms[len(p.capRooms)-1], len(p.capReqs)
}

func TestPluginDispatch(t *testing.T) {
	ctx := context.Background()
	rec := &recordingPlugin{}
	tr := newTestTreasury(t, memory.New(), testConfig(), treasury.WithPlugin(rec))

	if err := tr.Mint(ctx, admin, alice, treasury.Units(100)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if err := tr.Transfer(ctx, alice, bob, treasury.Units(30)); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	wantKinds := []journal.Kind{journal.KindGenesis, journal.KindMint, journal.KindTransfer}
	got := rec.seenKinds()
	if len(got) != len(wantKinds) {
		t.Fatalf("OnEntry saw %d entries, want %d", len(got), len(wantKinds))
	}
	for i := range wantKinds {
		if got[i] != wantKinds[i] {
			t.Errorf("OnEntry order[%d] = %s, want %s", i, got[i], wantKinds[i])
		}
	}

	// A refused mint reports the rejection and, for cap breaches, the
	// remaining headroom.
	if err := tr.Mint(ctx, admin, alice, treasury.Units(2000)); !errors.Is(err, treasury.ErrCapExceeded) {
		t.Fatalf("Mint() above cap: error = %v, want ErrCapExceeded", err)
	}
	rejected := rec.seenRejected()
	if len(rejected) != 1 || rejected[0] != journal.KindMint {
		t.Errorf("OnRejected saw %v, want [mint]", rejected)
	}
	requested, headroom, calls := rec.lastCapExceeded()
	if calls != 1 {
		t.Fatalf("OnCapExceeded called %d times, want 1", calls)
	}
	if !requested.Equal(treasury.Units(2000)) {
		t.Errorf("OnCapExceeded requested = %s, want 2000", requested)
	}
	if !headroom.Equal(treasury.Units(900)) {
		t.Errorf("OnCapExceeded headroom = %s, want 900", headroom)
	}
}

func TestConcurrentEngineOperations(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Cap = treasury.Units(1_000_000)
	tr := newTestTreasury(t, memory.New(), cfg)

	if err := tr.Mint(ctx, admin, alice, treasury.Units(10_000)); err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = tr.Transfer(ctx, alice, bob, treasury.Units(1))
				_ = tr.Transfer(ctx, bob, alice, treasury.Units(1))
				_ = tr.Mint(ctx, admin, carol, treasury.Units(1))
			}
		}()
	}
	wg.Wait()

	want := treasury.Units(10_400)
	if got := tr.TotalSupply(); !got.Equal(want) {
		t.Errorf("TotalSupply() = %s, want %s", got, want)
	}

	// Every committed operation is journaled exactly once.
	mustFlush(t, tr)
	entries, err := tr.History(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	wantEntries := 2 + 8*50*3 // genesis + funding mint + worker operations
	if len(entries) != wantEntries {
		t.Errorf("History() returned %d entries, want %d", len(entries), wantEntries)
	}

	snap, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	sum := treasury.Zero()
	for _, bal := range snap.Balances {
		next, err := sum.Add(bal.Amount)
		if err != nil {
			t.Fatalf("balance sum overflow: %v", err)
		}
		sum = next
	}
	if !sum.Equal(tr.TotalSupply()) {
		t.Errorf("sum(balances) = %s, TotalSupply() = %s", sum, tr.TotalSupply())
	}
}

func BenchmarkTreasuryMint(b *testing.B) {
	cfg := testConfig()
	cfg.Cap = treasury.MaxAmount()
	tr := treasury.New(memory.New(), cfg, quiet())
	if err := tr.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	defer tr.Stop()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tr.Mint(ctx, admin, alice, treasury.Units(1)); err != nil {
			b.Fatal(err)
		}
	}
}
