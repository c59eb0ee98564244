// Package mongo implements the Treasury store on MongoDB via the
// Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	treasurystore "github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// Collection name constants.
const (
	colLedgers    = "treasury_ledgers"
	colBalances   = "treasury_balances"
	colAllowances = "treasury_allowances"
	colRoles      = "treasury_roles"
	colJournal    = "treasury_journal"
)

// compile-time interface check
var _ treasurystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all treasury collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("treasury/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: create ledger: %w", err)
	}
	return nil
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*treasurystore.Ledger, error) {
	var m ledgerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": ledgerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, treasury.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("treasury/mongo: get ledger: %w", err)
	}
	return fromLedgerModel(&m)
}

func (s *Store) ListLedgers(ctx context.Context) ([]*treasurystore.Ledger, error) {
	var models []ledgerModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: list ledgers: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: update ledger: %w", err)
	}
	if res.MatchedCount() == 0 {
		return treasury.ErrLedgerNotFound
	}
	return nil
}

func (s *Store) DeleteLedger(ctx context.Context, ledgerID id.LedgerID) error {
	lid := ledgerID.String()

	// Child documents first; each delete is idempotent.
	if _, err := s.mdb.NewDelete((*journalEntryModel)(nil)).
		Filter(bson.M{"ledger_id": lid}).
		Exec(ctx); err != nil {
		return fmt.Errorf("treasury/mongo: delete journal: %w", err)
	}
	if _, err := s.mdb.NewDelete((*balanceModel)(nil)).
		Filter(bson.M{"ledger_id": lid}).
		Exec(ctx); err != nil {
		return fmt.Errorf("treasury/mongo: delete balances: %w", err)
	}
	if _, err := s.mdb.NewDelete((*allowanceModel)(nil)).
		Filter(bson.M{"ledger_id": lid}).
		Exec(ctx); err != nil {
		return fmt.Errorf("treasury/mongo: delete allowances: %w", err)
	}
	if _, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"ledger_id": lid}).
		Exec(ctx); err != nil {
		return fmt.Errorf("treasury/mongo: delete roles: %w", err)
	}

	res, err := s.mdb.NewDelete((*ledgerModel)(nil)).
		Filter(bson.M{"_id": lid}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: delete ledger: %w", err)
	}
	if res.DeletedCount() == 0 {
		return treasury.ErrLedgerNotFound
	}
	return nil
}

// ==================== Balance store ====================

func (s *Store) UpsertBalances(ctx context.Context, ledgerID id.LedgerID, balances []book.Balance) error {
	for _, b := range balances {
		m := toBalanceModel(ledgerID, b)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.Key}).
			SetUpdate(bson.M{"$set": bson.M{
				"_id":        m.Key,
				"ledger_id":  m.LedgerID,
				"address":    m.Address,
				"amount":     m.Amount,
				"updated_at": m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("treasury/mongo: upsert balance: %w", err)
		}
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, ledgerID id.LedgerID, addr types.Address) (*book.Balance, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": balanceKey(ledgerID, addr)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			// Unknown accounts hold zero.
			return &book.Balance{Address: addr, Amount: types.Zero()}, nil
		}
		return nil, fmt.Errorf("treasury/mongo: get balance: %w", err)
	}
	b, err := fromBalanceModel(&m)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBalances(ctx context.Context, ledgerID id.LedgerID) ([]book.Balance, error) {
	var models []balanceModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"ledger_id": ledgerID.String()}).
		Sort(bson.D{{Key: "address", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: list balances: %w", err)
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
	for _, a := range allowances {
		m := toAllowanceModel(ledgerID, a)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.Key}).
			SetUpdate(bson.M{"$set": bson.M{
				"_id":        m.Key,
				"ledger_id":  m.LedgerID,
				"owner":      m.Owner,
				"spender":    m.Spender,
				"amount":     m.Amount,
				"updated_at": m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("treasury/mongo: upsert allowance: %w", err)
		}
	}
	return nil
}

func (s *Store) ListAllowances(ctx context.Context, ledgerID id.LedgerID) ([]book.Allowance, error) {
	var models []allowanceModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"ledger_id": ledgerID.String()}).
		Sort(bson.D{{Key: "owner", Value: 1}, {Key: "spender", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: list allowances: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		// Re-granting an existing role is a no-op.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("treasury/mongo: grant role: %w", err)
	}
	return nil
}

func (s *Store) RevokeRole(ctx context.Context, ledgerID id.LedgerID, g book.Grant) error {
	_, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": roleKey(ledgerID, g)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("treasury/mongo: revoke role: %w", err)
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context, ledgerID id.LedgerID) ([]book.Grant, error) {
	var models []roleModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"ledger_id": ledgerID.String()}).
		Sort(bson.D{{Key: "role", Value: 1}, {Key: "address", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("treasury/mongo: list grants: %w", err)
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
	for _, e := range entries {
		m := toJournalEntryModel(e)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Skip duplicates so retried flushes stay idempotent.
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("treasury/mongo: append entry: %w", err)
		}
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, ledgerID id.LedgerID, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []journalEntryModel

	filter := bson.M{"ledger_id": ledgerID.String()}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Actor != "" {
		filter["actor"] = string(opts.Actor)
	}
	if opts.Account != "" {
		filter["$or"] = bson.A{
			bson.M{"from_addr": string(opts.Account)},
			bson.M{"to_addr": string(opts.Account)},
		}
	}
	if !opts.Since.IsZero() {
		filter["created_at"] = bson.M{"$gte": opts.Since}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("treasury/mongo: list entries: %w", err)
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
	res, err := s.mdb.NewDelete((*journalEntryModel)(nil)).
		Filter(bson.M{
			"ledger_id":  ledgerID.String(),
			"created_at": bson.M{"$lt": before},
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("treasury/mongo: purge entries: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks for the driver's missing-document sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all treasury collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colLedgers: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colBalances: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "address", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAllowances: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "owner", Value: 1}, {Key: "spender", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colRoles: {
			{
				Keys:    bson.D{{Key: "ledger_id", Value: 1}, {Key: "role", Value: 1}, {Key: "address", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "address", Value: 1}}},
		},
		colJournal: {
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "kind", Value: 1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "actor", Value: 1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "from_addr", Value: 1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "to_addr", Value: 1}}},
		},
	}
}
