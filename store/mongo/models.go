package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// Amounts are stored as base-10 strings so no BSON numeric type can
// truncate a 256-bit value. Compound-keyed documents use a composite
// "_id" so upserts stay single-document operations.

// ==================== Ledger models ====================

type ledgerModel struct {
	grove.BaseModel `grove:"table:treasury_ledgers"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Name      string    `grove:"name"       bson:"name"`
	Symbol    string    `grove:"symbol"     bson:"symbol"`
	Cap       string    `grove:"cap"        bson:"cap"`
	Supply    string    `grove:"supply"     bson:"supply"`
	Status    string    `grove:"status"     bson:"status"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toLedgerModel(l *store.Ledger) *ledgerModel {
	return &ledgerModel{
		ID:        l.ID.String(),
		Name:      l.Name,
		Symbol:    l.Symbol,
		Cap:       l.Cap.String(),
		Supply:    l.Supply.String(),
		Status:    string(l.Status),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func fromLedgerModel(m *ledgerModel) (*store.Ledger, error) {
	ledgerID, err := id.ParseLedgerID(m.ID)
	if err != nil {
		return nil, err
	}
	capAmount, err := types.ParseAmount(m.Cap)
	if err != nil {
		return nil, err
	}
	supply, err := types.ParseAmount(m.Supply)
	if err != nil {
		return nil, err
	}

	return &store.Ledger{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:     ledgerID,
		Name:   m.Name,
		Symbol: m.Symbol,
		Cap:    capAmount,
		Supply: supply,
		Status: book.Status(m.Status),
	}, nil
}

// ==================== Balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:treasury_balances"`

	Key       string    `grove:"id,pk"      bson:"_id"`
	LedgerID  string    `grove:"ledger_id"  bson:"ledger_id"`
	Address   string    `grove:"address"    bson:"address"`
	Amount    string    `grove:"amount"     bson:"amount"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func balanceKey(ledgerID id.LedgerID, addr types.Address) string {
	return ledgerID.String() + ":" + string(addr)
}

func toBalanceModel(ledgerID id.LedgerID, b book.Balance) *balanceModel {
	return &balanceModel{
		Key:       balanceKey(ledgerID, b.Address),
		LedgerID:  ledgerID.String(),
		Address:   string(b.Address),
		Amount:    b.Amount.String(),
		UpdatedAt: time.Now().UTC(),
	}
}

func fromBalanceModel(m *balanceModel) (book.Balance, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return book.Balance{}, err
	}
	return book.Balance{
		Address: types.Address(m.Address),
		Amount:  amount,
	}, nil
}

// ==================== Allowance models ====================

type allowanceModel struct {
	grove.BaseModel `grove:"table:treasury_allowances"`

	Key       string    `grove:"id,pk"      bson:"_id"`
	LedgerID  string    `grove:"ledger_id"  bson:"ledger_id"`
	Owner     string    `grove:"owner"      bson:"owner"`
	Spender   string    `grove:"spender"    bson:"spender"`
	Amount    string    `grove:"amount"     bson:"amount"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func allowanceKey(ledgerID id.LedgerID, owner, spender types.Address) string {
	return ledgerID.String() + ":" + string(owner) + ":" + string(spender)
}

func toAllowanceModel(ledgerID id.LedgerID, a book.Allowance) *allowanceModel {
	return &allowanceModel{
		Key:       allowanceKey(ledgerID, a.Owner, a.Spender),
		LedgerID:  ledgerID.String(),
		Owner:     string(a.Owner),
		Spender:   string(a.Spender),
		Amount:    a.Amount.String(),
		UpdatedAt: time.Now().UTC(),
	}
}

func fromAllowanceModel(m *allowanceModel) (book.Allowance, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return book.Allowance{}, err
	}
	return book.Allowance{
		Owner:   types.Address(m.Owner),
		Spender: types.Address(m.Spender),
		Amount:  amount,
	}, nil
}

// ==================== Role models ====================

type roleModel struct {
	grove.BaseModel `grove:"table:treasury_roles"`

	Key       string    `grove:"id,pk"      bson:"_id"`
	LedgerID  string    `grove:"ledger_id"  bson:"ledger_id"`
	Role      string    `grove:"role"       bson:"role"`
	Address   string    `grove:"address"    bson:"address"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func roleKey(ledgerID id.LedgerID, g book.Grant) string {
	return ledgerID.String() + ":" + string(g.Role) + ":" + string(g.Address)
}

func toRoleModel(ledgerID id.LedgerID, g book.Grant) *roleModel {
	return &roleModel{
		Key:       roleKey(ledgerID, g),
		LedgerID:  ledgerID.String(),
		Role:      string(g.Role),
		Address:   string(g.Address),
		CreatedAt: time.Now().UTC(),
	}
}

func fromRoleModel(m *roleModel) book.Grant {
	return book.Grant{
		Role:    types.Role(m.Role),
		Address: types.Address(m.Address),
	}
}

// ==================== Journal models ====================

type journalEntryModel struct {
	grove.BaseModel `grove:"table:treasury_journal"`

	ID         string    `grove:"id,pk"      bson:"_id"`
	LedgerID   string    `grove:"ledger_id"  bson:"ledger_id"`
	Kind       string    `grove:"kind"       bson:"kind"`
	Actor      string    `grove:"actor"      bson:"actor"`
	FromAddr   string    `grove:"from_addr"  bson:"from_addr"`
	ToAddr     string    `grove:"to_addr"    bson:"to_addr"`
	Recipients []string  `grove:"recipients" bson:"recipients,omitempty"`
	Amounts    []string  `grove:"amounts"    bson:"amounts,omitempty"`
	Amount     string    `grove:"amount"     bson:"amount"`
	Role       string    `grove:"role"       bson:"role"`
	Supply     string    `grove:"supply"     bson:"supply"`
	CreatedAt  time.Time `grove:"created_at" bson:"created_at"`
}

func toJournalEntryModel(e *journal.Entry) *journalEntryModel {
	var recipients []string
	if len(e.Recipients) > 0 {
		recipients = make([]string, len(e.Recipients))
		for i, r := range e.Recipients {
			recipients[i] = string(r)
		}
	}
	var amounts []string
	if len(e.Amounts) > 0 {
		amounts = make([]string, len(e.Amounts))
		for i, a := range e.Amounts {
			amounts[i] = a.String()
		}
	}

	return &journalEntryModel{
		ID:         e.ID.String(),
		LedgerID:   e.Ledger.String(),
		Kind:       string(e.Kind),
		Actor:      string(e.Actor),
		FromAddr:   string(e.From),
		ToAddr:     string(e.To),
		Recipients: recipients,
		Amounts:    amounts,
		Amount:     e.Amount.String(),
		Role:       string(e.Role),
		Supply:     e.Supply.String(),
		CreatedAt:  e.CreatedAt,
	}
}

func fromJournalEntryModel(m *journalEntryModel) (*journal.Entry, error) {
	entryID, err := id.ParseJournalID(m.ID)
	if err != nil {
		return nil, err
	}
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	supply, err := types.ParseAmount(m.Supply)
	if err != nil {
		return nil, err
	}

	var recipients []types.Address
	if len(m.Recipients) > 0 {
		recipients = make([]types.Address, len(m.Recipients))
		for i, r := range m.Recipients {
			recipients[i] = types.Address(r)
		}
	}
	var amounts []types.Amount
	if len(m.Amounts) > 0 {
		amounts = make([]types.Amount, len(m.Amounts))
		for i, a := range m.Amounts {
			parsed, err := types.ParseAmount(a)
			if err != nil {
				return nil, err
			}
			amounts[i] = parsed
		}
	}

	return &journal.Entry{
		ID:         entryID,
		Ledger:     ledgerID,
		Kind:       journal.Kind(m.Kind),
		Actor:      types.Address(m.Actor),
		From:       types.Address(m.FromAddr),
		To:         types.Address(m.ToAddr),
		Recipients: recipients,
		Amounts:    amounts,
		Amount:     amount,
		Role:       types.Role(m.Role),
		Supply:     supply,
		CreatedAt:  m.CreatedAt,
	}, nil
}
