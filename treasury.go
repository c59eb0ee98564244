package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// Config describes the ledger a Treasury manages. For a brand-new ledger
// every field below is required except the initial mint pair; when an
// existing ledger is restored from the store, the stored values are
// authoritative and only a non-zero Cap is cross-checked against them.
type Config struct {
	// Name is the human-readable token name, e.g. "Acme Credits".
	Name string

	// Symbol is the short display code, e.g. "ACR".
	Symbol string

	// Cap is the hard ceiling on total supply. Fixed for the life of the
	// ledger; no operation can raise it.
	Cap types.Amount

	// Deployer is granted the admin, minter and pauser roles at genesis.
	Deployer types.Address

	// InitialReceiver and InitialAmount describe an optional genesis mint,
	// counted against the cap like any other issuance.
	InitialReceiver types.Address
	InitialAmount   types.Amount
}

// Validate checks the config for a fresh genesis.
func (c Config) Validate() error {
	var errs MultiError
	if c.Name == "" {
		errs.Add(ValidationError{Field: "name", Message: "required"})
	}
	if c.Symbol == "" {
		errs.Add(ValidationError{Field: "symbol", Message: "required"})
	}
	if c.Cap.IsZero() {
		errs.Add(ValidationError{Field: "cap", Message: "must be positive"})
	}
	if c.Deployer.IsZero() {
		errs.Add(ValidationError{Field: "deployer", Message: "required"})
	}
	if !c.InitialAmount.IsZero() && c.InitialReceiver.IsZero() {
		errs.Add(ValidationError{Field: "initial_receiver", Message: "required when initial_amount is set"})
	}
	if !c.Cap.IsZero() && c.InitialAmount.GreaterThan(c.Cap) {
		errs.Add(ValidationError{Field: "initial_amount", Message: "exceeds cap"})
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Treasury is the main ledger engine. It keeps the authoritative books in
// memory, applies every operation synchronously, and streams the resulting
// journal to the store through a background flush worker.
type Treasury struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	cfg    Config
	id     id.LedgerID
	book   *book.Book
	entity types.Entity

	// opMu serializes mutations so journal order matches commit order.
	opMu sync.Mutex

	// Background workers
	journalBuffer chan *journal.Entry
	flushReq      chan chan struct{}
	stopChan      chan struct{}
	wg            sync.WaitGroup

	mu      sync.RWMutex
	started bool

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
}

// New creates a new Treasury instance. The engine does nothing until
// Start is called.
func New(s store.Store, cfg Config, opts ...Option) *Treasury {
	t := &Treasury{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		cfg:                  cfg,
		id:                   id.NewLedgerID(),
		journalBuffer:        make(chan *journal.Entry, 10000),
		flushReq:             make(chan chan struct{}),
		stopChan:             make(chan struct{}),
		journalBatchSize:     100,
		journalFlushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Option configures a Treasury instance.
type Option func(*Treasury)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Treasury) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Treasury) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithLedgerID pins the ledger identity. Set it when restoring a ledger
// the store already holds; without it a fresh identity is generated and
// Start performs a new genesis.
func WithLedgerID(ledgerID id.LedgerID) Option {
	return func(t *Treasury) {
		t.id = ledgerID
	}
}

// WithJournalConfig configures journal flushing parameters.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(t *Treasury) {
		t.journalBatchSize = batchSize
		t.journalFlushInterval = flushInterval
	}
}

// Start migrates the store, then either restores the ledger identified by
// WithLedgerID or performs a genesis from the config, and finally begins
// background workers.
func (t *Treasury) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.mu.Unlock()

	// Migrate database
	if err := t.store.Migrate(ctx); err != nil {
		return err
	}

	row, snap, err := store.LoadSnapshot(ctx, t.store, t.id)
	var genesis *journal.Entry
	switch {
	case err == nil:
		if err := t.restore(row, snap); err != nil {
			return err
		}
	case errors.Is(err, ErrLedgerNotFound):
		genesis, err = t.genesis(ctx)
		if err != nil {
			return err
		}
	default:
		return err
	}

	// Initialize plugins
	t.plugins.EmitInit(ctx, t)
	if genesis != nil {
		t.plugins.EmitEntry(ctx, genesis)
	}

	// Start journal flush worker
	t.wg.Add(1)
	go t.journalFlushWorker(ctx)

	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	t.logger.Info("treasury started",
		"ledger", t.id,
		"name", t.cfg.Name,
		"symbol", t.cfg.Symbol,
		"cap", t.book.Cap(),
		"supply", t.book.TotalSupply(),
		"status", t.book.Status(),
	)

	return nil
}

// restore rebuilds the books from persisted state. The stored ledger is
// authoritative; a non-zero configured cap that disagrees with it is a
// deployment mistake and fails the start.
func (t *Treasury) restore(row *store.Ledger, snap *book.Snapshot) error {
	if !t.cfg.Cap.IsZero() && !t.cfg.Cap.Equal(row.Cap) {
		return fmt.Errorf("%w: configured %s, stored %s", ErrCapMismatch, t.cfg.Cap, row.Cap)
	}

	b, err := book.Restore(snap)
	if err != nil {
		return err
	}

	t.book = b
	t.cfg.Name = row.Name
	t.cfg.Symbol = row.Symbol
	t.cfg.Cap = row.Cap
	t.entity = row.Entity

	t.logger.Info("treasury ledger restored",
		"ledger", t.id,
		"supply", b.TotalSupply(),
		"holders", b.HolderCount(),
	)
	return nil
}

// genesis creates a brand-new ledger from the config and persists it
// synchronously, so a crash right after Start cannot lose the deployer's
// roles or the initial mint.
func (t *Treasury) genesis(ctx context.Context) (*journal.Entry, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}
	if !t.cfg.InitialAmount.IsZero() {
		if err := t.plugins.ValidateAddress(ctx, t.cfg.InitialReceiver); err != nil {
			return nil, err
		}
	}

	b, err := book.New(t.cfg.Cap, t.cfg.Deployer, t.cfg.InitialReceiver, t.cfg.InitialAmount)
	if err != nil {
		return nil, err
	}
	t.book = b
	t.entity = types.NewEntity()

	if err := t.store.CreateLedger(ctx, t.ledgerRow()); err != nil {
		return nil, err
	}
	for _, role := range types.Roles() {
		if err := t.store.GrantRole(ctx, t.id, book.Grant{Role: role, Address: t.cfg.Deployer}); err != nil {
			return nil, err
		}
	}
	if !t.cfg.InitialAmount.IsZero() {
		initial := []book.Balance{{Address: t.cfg.InitialReceiver, Amount: t.cfg.InitialAmount}}
		if err := t.store.UpsertBalances(ctx, t.id, initial); err != nil {
			return nil, err
		}
	}

	entry := journal.Genesis(t.id, t.cfg.Deployer, t.cfg.InitialReceiver, t.cfg.InitialAmount, b.TotalSupply())
	if err := t.store.AppendEntries(ctx, []*journal.Entry{entry}); err != nil {
		return nil, err
	}

	t.logger.Info("treasury ledger created",
		"ledger", t.id,
		"cap", t.cfg.Cap,
		"initial_supply", b.TotalSupply(),
	)
	return entry, nil
}

// Stop drains the journal, shuts down plugins, and closes the store.
func (t *Treasury) Stop() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return ErrNotStarted
	}
	t.started = false
	t.mu.Unlock()

	// Any operation that passed the started check holds opMu until its
	// entry is enqueued; taking the lock once flushes that window.
	t.opMu.Lock()
	t.opMu.Unlock() //nolint:staticcheck // empty critical section is the barrier

	close(t.stopChan)
	t.wg.Wait()

	ctx := context.Background()
	t.plugins.EmitShutdown(ctx)

	return t.store.Close()
}

// books returns the live book or ErrNotStarted.
func (t *Treasury) books() (*book.Book, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.started {
		return nil, ErrNotStarted
	}
	return t.book, nil
}

// view returns the live book for queries, or nil before Start.
func (t *Treasury) view() *book.Book {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.started {
		return nil
	}
	return t.book
}

// ──────────────────────────────────────────────────
// Issuance
// ──────────────────────────────────────────────────

// Mint credits amount to a single recipient. The actor must hold the
// minter role, the ledger must be active, and the post-mint supply must
// fit under the cap.
func (t *Treasury) Mint(ctx context.Context, actor, to types.Address, amount types.Amount) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	if err := t.plugins.ValidateAddress(ctx, to); err != nil {
		return err
	}
	if err := b.Mint(actor, to, amount); err != nil {
		return t.reject(ctx, journal.KindMint, actor, amount, err)
	}
	t.record(ctx, journal.Mint(t.id, actor, to, amount, b.TotalSupply()))
	return nil
}

// BatchMint credits each recipient its matching amount in one atomic
// operation and returns the total minted. Either every recipient is
// credited or none is.
func (t *Treasury) BatchMint(ctx context.Context, actor types.Address, recipients []types.Address, amounts []types.Amount) (types.Amount, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return types.Zero(), err
	}
	for _, r := range recipients {
		if err := t.plugins.ValidateAddress(ctx, r); err != nil {
			return types.Zero(), err
		}
	}
	total, err := b.BatchMint(actor, recipients, amounts)
	if err != nil {
		requested, sumErr := types.Sum(amounts...)
		if sumErr != nil {
			requested = types.Zero()
		}
		return types.Zero(), t.reject(ctx, journal.KindBatchMint, actor, requested, err)
	}
	if len(recipients) == 0 {
		// Legal no-op; nothing to journal.
		return total, nil
	}
	t.record(ctx, journal.BatchMint(t.id, actor, recipients, amounts, total, b.TotalSupply()))
	return total, nil
}

// ──────────────────────────────────────────────────
// Transfers and burns
// ──────────────────────────────────────────────────

// Transfer moves amount between two accounts. Supply is unchanged.
func (t *Treasury) Transfer(ctx context.Context, from, to types.Address, amount types.Amount) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	if err := t.plugins.ValidateAddress(ctx, to); err != nil {
		return err
	}
	if err := b.Transfer(from, to, amount); err != nil {
		return t.reject(ctx, journal.KindTransfer, from, amount, err)
	}
	t.record(ctx, journal.Transfer(t.id, from, to, amount, b.TotalSupply()))
	return nil
}

// TransferFrom moves amount from the owner to the recipient on the
// spender's authority, charged against the owner→spender allowance.
func (t *Treasury) TransferFrom(ctx context.Context, spender, from, to types.Address, amount types.Amount) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	if err := t.plugins.ValidateAddress(ctx, to); err != nil {
		return err
	}
	if err := b.TransferFrom(spender, from, to, amount); err != nil {
		return t.reject(ctx, journal.KindTransfer, spender, amount, err)
	}
	t.record(ctx, journal.TransferFrom(t.id, spender, from, to, amount, b.TotalSupply()))
	return nil
}

// Burn debits amount from the owner and lowers total supply, freeing
// headroom under the cap.
func (t *Treasury) Burn(ctx context.Context, owner types.Address, amount types.Amount) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	if err := b.Burn(owner, amount); err != nil {
		return t.reject(ctx, journal.KindBurn, owner, amount, err)
	}
	t.record(ctx, journal.Burn(t.id, owner, amount, b.TotalSupply()))
	return nil
}

// BurnFrom burns from the owner's balance on the spender's authority.
func (t *Treasury) BurnFrom(ctx context.Context, spender, owner types.Address, amount types.Amount) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	if err := b.BurnFrom(spender, owner, amount); err != nil {
		return t.reject(ctx, journal.KindBurn, spender, amount, err)
	}
	t.record(ctx, journal.BurnFrom(t.id, spender, owner, amount, b.TotalSupply()))
	return nil
}

// Approve sets the spender's allowance over the owner's balance to exactly
// amount, replacing any previous value.
func (t *Treasury) Approve(ctx context.Context, owner, spender types.Address, amount types.Amount) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	if err := t.plugins.ValidateAddress(ctx, spender); err != nil {
		return err
	}
	if err := b.Approve(owner, spender, amount); err != nil {
		return t.reject(ctx, journal.KindApproval, owner, amount, err)
	}
	t.record(ctx, journal.Approval(t.id, owner, spender, amount))
	return nil
}

// ──────────────────────────────────────────────────
// Pause and roles
// ──────────────────────────────────────────────────

// Pause halts every balance-changing operation. Pausing an already-paused
// ledger succeeds without side effects.
func (t *Treasury) Pause(ctx context.Context, actor types.Address) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	changed, err := b.Pause(actor)
	if err != nil {
		return t.reject(ctx, journal.KindPause, actor, types.Zero(), err)
	}
	if changed {
		t.record(ctx, journal.Pause(t.id, actor))
	}
	return nil
}

// Unpause resumes normal operation. Unpausing an active ledger succeeds
// without side effects.
func (t *Treasury) Unpause(ctx context.Context, actor types.Address) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	changed, err := b.Unpause(actor)
	if err != nil {
		return t.reject(ctx, journal.KindUnpause, actor, types.Zero(), err)
	}
	if changed {
		t.record(ctx, journal.Unpause(t.id, actor))
	}
	return nil
}

// GrantRole adds an account to a role. The actor must hold the admin role.
func (t *Treasury) GrantRole(ctx context.Context, actor types.Address, role types.Role, account types.Address) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	changed, err := b.Grant(actor, role, account)
	if err != nil {
		return t.reject(ctx, journal.KindGrant, actor, types.Zero(), err)
	}
	if changed {
		t.record(ctx, journal.RoleGrant(t.id, actor, role, account))
	}
	return nil
}

// RevokeRole removes an account from a role. The actor must hold the
// admin role; admins may revoke their own roles.
func (t *Treasury) RevokeRole(ctx context.Context, actor types.Address, role types.Role, account types.Address) error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	b, err := t.books()
	if err != nil {
		return err
	}
	changed, err := b.Revoke(actor, role, account)
	if err != nil {
		return t.reject(ctx, journal.KindRevoke, actor, types.Zero(), err)
	}
	if changed {
		t.record(ctx, journal.RoleRevoke(t.id, actor, role, account))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// BalanceOf returns the account's balance. Unknown accounts hold zero.
func (t *Treasury) BalanceOf(addr types.Address) types.Amount {
	if b := t.view(); b != nil {
		return b.BalanceOf(addr)
	}
	return types.Zero()
}

// TotalSupply returns the sum of all balances.
func (t *Treasury) TotalSupply() types.Amount {
	if b := t.view(); b != nil {
		return b.TotalSupply()
	}
	return types.Zero()
}

// Cap returns the immutable supply ceiling.
func (t *Treasury) Cap() types.Amount {
	if b := t.view(); b != nil {
		return b.Cap()
	}
	return t.cfg.Cap
}

// Headroom returns how much supply can still be minted before the cap.
func (t *Treasury) Headroom() types.Amount {
	if b := t.view(); b != nil {
		return b.Headroom()
	}
	return types.Zero()
}

// Allowance returns the spender's remaining allowance over the owner's
// balance.
func (t *Treasury) Allowance(owner, spender types.Address) types.Amount {
	if b := t.view(); b != nil {
		return b.Allowance(owner, spender)
	}
	return types.Zero()
}

// HasRole reports whether the account holds the role.
func (t *Treasury) HasRole(role types.Role, addr types.Address) bool {
	if b := t.view(); b != nil {
		return b.HasRole(role, addr)
	}
	return false
}

// Paused reports whether the ledger is paused.
func (t *Treasury) Paused() bool {
	if b := t.view(); b != nil {
		return b.Paused()
	}
	return false
}

// HolderCount returns the number of accounts with a non-zero balance.
func (t *Treasury) HolderCount() int {
	if b := t.view(); b != nil {
		return b.HolderCount()
	}
	return 0
}

// Name returns the token name.
func (t *Treasury) Name() string { return t.cfg.Name }

// Symbol returns the token symbol.
func (t *Treasury) Symbol() string { return t.cfg.Symbol }

// LedgerID returns the ledger identity.
func (t *Treasury) LedgerID() id.LedgerID { return t.id }

// Snapshot copies the full ledger state.
func (t *Treasury) Snapshot() (*book.Snapshot, error) {
	b, err := t.books()
	if err != nil {
		return nil, err
	}
	return b.Snapshot(), nil
}

// Info returns the current ledger descriptor.
func (t *Treasury) Info() (*store.Ledger, error) {
	if _, err := t.books(); err != nil {
		return nil, err
	}
	return t.ledgerRow(), nil
}

// History returns committed journal entries, newest first. Entries still
// buffered for flushing are not visible; call Flush first for
// read-your-writes behavior.
func (t *Treasury) History(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	if _, err := t.books(); err != nil {
		return nil, err
	}
	return t.store.ListEntries(ctx, t.id, opts)
}

// PurgeJournal deletes journal entries older than the given time and
// returns how many were removed. Balances are unaffected.
func (t *Treasury) PurgeJournal(ctx context.Context, before time.Time) (int64, error) {
	if _, err := t.books(); err != nil {
		return 0, err
	}
	return t.store.PurgeEntries(ctx, t.id, before)
}

// Ping reports store health.
func (t *Treasury) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}

// Flush synchronously drains the journal buffer to the store.
func (t *Treasury) Flush(ctx context.Context) error {
	if _, err := t.books(); err != nil {
		return err
	}
	done := make(chan struct{})
	select {
	case t.flushReq <- done:
	case <-t.stopChan:
		return ErrNotStarted
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ──────────────────────────────────────────────────
// Journal pipeline
// ──────────────────────────────────────────────────

// record dispatches a committed entry to plugins and queues it for the
// flush worker. Callers hold opMu, so entries reach the buffer in commit
// order.
func (t *Treasury) record(ctx context.Context, e *journal.Entry) {
	t.plugins.EmitEntry(ctx, e)
	t.journalBuffer <- e
}

// reject notifies plugins of a refused operation and passes the error
// through.
func (t *Treasury) reject(ctx context.Context, kind journal.Kind, actor types.Address, requested types.Amount, err error) error {
	t.plugins.EmitRejected(ctx, kind, actor, err)
	if errors.Is(err, ErrCapExceeded) {
		t.plugins.EmitCapExceeded(ctx, actor, requested, t.book.Headroom())
	}
	return err
}

// journalFlushWorker flushes journal entries to the store.
func (t *Treasury) journalFlushWorker(ctx context.Context) {
	defer t.wg.Done()

	batch := make([]*journal.Entry, 0, t.journalBatchSize)
	ticker := time.NewTicker(t.journalFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			// Final drain
			batch = t.drain(batch)
			if len(batch) > 0 {
				t.flushJournal(ctx, batch)
			}
			return

		case e := <-t.journalBuffer:
			batch = append(batch, e)
			if len(batch) >= t.journalBatchSize {
				batch = t.flushJournal(ctx, batch)
			}

		case done := <-t.flushReq:
			batch = t.drain(batch)
			if len(batch) > 0 {
				batch = t.flushJournal(ctx, batch)
			}
			close(done)

		case <-ticker.C:
			if len(batch) > 0 {
				batch = t.flushJournal(ctx, batch)
			}
		}
	}
}

// drain empties the journal buffer into batch without blocking.
func (t *Treasury) drain(batch []*journal.Entry) []*journal.Entry {
	for {
		select {
		case e := <-t.journalBuffer:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}

// flushJournal appends a batch to the store and syncs the state rows it
// touched. On store failure the batch is kept for the next attempt,
// bounded so a dead store cannot grow it without limit.
func (t *Treasury) flushJournal(ctx context.Context, batch []*journal.Entry) []*journal.Entry {
	start := time.Now()

	if err := t.store.AppendEntries(ctx, batch); err != nil {
		t.logger.Error("failed to flush journal batch",
			"error", err,
			"batch_size", len(batch),
		)
		if limit := t.journalBatchSize * 10; len(batch) > limit {
			t.logger.Error("dropping oldest journal entries after repeated flush failures",
				"dropped", len(batch)-limit,
			)
			batch = batch[len(batch)-limit:]
		}
		return batch
	}

	t.syncState(ctx, batch)

	elapsed := time.Since(start)
	t.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	t.logger.Debug("flushed journal batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return make([]*journal.Entry, 0, t.journalBatchSize)
}

// syncState mirrors the balances, allowances, roles and supply figures a
// flushed batch touched into the store's state rows. Values come from the
// live books, so a missed sync heals on the next flush.
func (t *Treasury) syncState(ctx context.Context, batch []*journal.Entry) {
	type pair struct{ owner, spender types.Address }

	touched := make([]types.Address, 0, len(batch))
	seen := make(map[types.Address]struct{})
	pairs := make(map[pair]struct{})

	for _, e := range batch {
		for _, addr := range e.Touched() {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			touched = append(touched, addr)
		}

		switch e.Kind {
		case journal.KindApproval:
			pairs[pair{owner: e.From, spender: e.To}] = struct{}{}
		case journal.KindTransfer, journal.KindBurn:
			// Delegated spends charge the owner→spender allowance.
			if e.Actor != e.From {
				pairs[pair{owner: e.From, spender: e.Actor}] = struct{}{}
			}
		case journal.KindGrant:
			if err := t.store.GrantRole(ctx, t.id, book.Grant{Role: e.Role, Address: e.To}); err != nil {
				t.logger.Warn("failed to sync role grant", "role", e.Role, "account", e.To, "error", err)
			}
		case journal.KindRevoke:
			if err := t.store.RevokeRole(ctx, t.id, book.Grant{Role: e.Role, Address: e.To}); err != nil {
				t.logger.Warn("failed to sync role revoke", "role", e.Role, "account", e.To, "error", err)
			}
		}
	}

	if len(touched) > 0 {
		if err := t.store.UpsertBalances(ctx, t.id, t.book.BalancesFor(touched)); err != nil {
			t.logger.Warn("failed to sync balances", "accounts", len(touched), "error", err)
		}
	}
	if len(pairs) > 0 {
		allowances := make([]book.Allowance, 0, len(pairs))
		for p := range pairs {
			allowances = append(allowances, t.book.AllowanceFor(p.owner, p.spender))
		}
		if err := t.store.UpsertAllowances(ctx, t.id, allowances); err != nil {
			t.logger.Warn("failed to sync allowances", "pairs", len(pairs), "error", err)
		}
	}

	if err := t.store.UpdateLedger(ctx, t.ledgerRow()); err != nil {
		t.logger.Warn("failed to sync ledger row", "error", err)
	}
}

// ledgerRow builds the persisted descriptor from live state.
func (t *Treasury) ledgerRow() *store.Ledger {
	t.entity.Touch()
	return &store.Ledger{
		ID:     t.id,
		Name:   t.cfg.Name,
		Symbol: t.cfg.Symbol,
		Cap:    t.book.Cap(),
		Supply: t.book.TotalSupply(),
		Status: t.book.Status(),
		Entity: t.entity,
	}
}
