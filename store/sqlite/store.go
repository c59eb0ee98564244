// Package sqlite implements the Treasury store on SQLite via the Grove
// ORM. Suited to embedded and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	treasurystore "github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// compile-time interface check
var _ treasurystore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("treasury/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("treasury/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Ledger store ====================

func (s *Store) CreateLedger(ctx context.Context, l *treasurystore.Ledger) error {
	m := toLedgerModel(l)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*treasurystore.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", ledgerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, treasury.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) ListLedgers(ctx context.Context) ([]*treasurystore.Ledger, error) {
	var models []ledgerModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*treasurystore.Ledger, len(models))
	for i := range models {
		l, err := fromLedgerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

func (s *Store) UpdateLedger(ctx context.Context, l *treasurystore.Ledger) error {
	m := toLedgerModel(l)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return treasury.ErrLedgerNotFound
	}
	return nil
}

func (s *Store) DeleteLedger(ctx context.Context, ledgerID id.LedgerID) error {
	lid := ledgerID.String()

	// Child rows first; each delete is idempotent.
	if _, err := s.sdb.NewDelete((*journalEntryModel)(nil)).
		Where("ledger_id = ?", lid).
		Exec(ctx); err != nil {
		return err
	}
	if _, err := s.sdb.NewDelete((*balanceModel)(nil)).
		Where("ledger_id = ?", lid).
		Exec(ctx); err != nil {
		return err
	}
	if _, err := s.sdb.NewDelete((*allowanceModel)(nil)).
		Where("ledger_id = ?", lid).
		Exec(ctx); err != nil {
		return err
	}
	if _, err := s.sdb.NewDelete((*roleModel)(nil)).
		Where("ledger_id = ?", lid).
		Exec(ctx); err != nil {
		return err
	}

	res, err := s.sdb.NewDelete((*ledgerModel)(nil)).
		Where("id = ?", lid).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return treasury.ErrLedgerNotFound
	}
	return nil
}

// ==================== Balance store ====================

func (s *Store) UpsertBalances(ctx context.Context, ledgerID id.LedgerID, balances []book.Balance) error {
	if len(balances) == 0 {
		return nil
	}
	models := make([]balanceModel, len(balances))
	for i, b := range balances {
		models[i] = *toBalanceModel(ledgerID, b)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(ledger_id, address) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetBalance(ctx context.Context, ledgerID id.LedgerID, addr types.Address) (*book.Balance, error) {
	m := new(balanceModel)
	err := s.sdb.NewSelect(m).
		Where("ledger_id = ?", ledgerID.String()).
		Where("address = ?", string(addr)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			// Unknown accounts hold zero.
			return &book.Balance{Address: addr, Amount: types.Zero()}, nil
		}
		return nil, err
	}
	b, err := fromBalanceModel(m)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBalances(ctx context.Context, ledgerID id.LedgerID) ([]book.Balance, error) {
	var models []balanceModel
	err := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		OrderExpr("address ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]book.Balance, len(models))
	for i := range models {
		b, err := fromBalanceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// ==================== Allowance store ====================

func (s *Store) UpsertAllowances(ctx context.Context, ledgerID id.LedgerID, allowances []book.Allowance) error {
	if len(allowances) == 0 {
		return nil
	}
	models := make([]allowanceModel, len(allowances))
	for i, a := range allowances {
		models[i] = *toAllowanceModel(ledgerID, a)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(ledger_id, owner, spender) DO UPDATE").
		Set("amount = EXCLUDED.amount").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListAllowances(ctx context.Context, ledgerID id.LedgerID) ([]book.Allowance, error) {
	var models []allowanceModel
	err := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		OrderExpr("owner ASC, spender ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]book.Allowance, len(models))
	for i := range models {
		a, err := fromAllowanceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Role store ====================

func (s *Store) GrantRole(ctx context.Context, ledgerID id.LedgerID, g book.Grant) error {
	m := toRoleModel(ledgerID, g)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(ledger_id, role, address) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) RevokeRole(ctx context.Context, ledgerID id.LedgerID, g book.Grant) error {
	_, err := s.sdb.NewDelete((*roleModel)(nil)).
		Where("ledger_id = ?", ledgerID.String()).
		Where("role = ?", string(g.Role)).
		Where("address = ?", string(g.Address)).
		Exec(ctx)
	return err
}

func (s *Store) ListGrants(ctx context.Context, ledgerID id.LedgerID) ([]book.Grant, error) {
	var models []roleModel
	err := s.sdb.NewSelect(&models).
		Where("ledger_id = ?", ledgerID.String()).
		OrderExpr("role ASC, address ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]book.Grant, len(models))
	for i := range models {
		result[i] = fromRoleModel(&models[i])
	}
	return result, nil
}

// ==================== Journal store ====================

func (s *Store) AppendEntries(ctx context.Context, entries []*journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]journalEntryModel, len(entries))
	for i, e := range entries {
		models[i] = *toJournalEntryModel(e)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) ListEntries(ctx context.Context, ledgerID id.LedgerID, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []journalEntryModel
	q := s.sdb.NewSelect(&models).Where("ledger_id = ?", ledgerID.String())

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Actor != "" {
		q = q.Where("actor = ?", string(opts.Actor))
	}
	if opts.Account != "" {
		q = q.Where("(from_addr = ? OR to_addr = ?)", string(opts.Account), string(opts.Account))
	}
	if !opts.Since.IsZero() {
		q = q.Where("created_at >= ?", opts.Since)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromJournalEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) PurgeEntries(ctx context.Context, ledgerID id.LedgerID, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*journalEntryModel)(nil)).
		Where("ledger_id = ?", ledgerID.String()).
		Where("created_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
