package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/store"
	"github.com/xraph/treasury/types"
)

// Amounts are stored as base-10 TEXT so no integer column width can
// truncate a 256-bit value.

// ==================== Ledger models ====================

type ledgerModel struct {
	grove.BaseModel `grove:"table:treasury_ledgers"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	Symbol    string    `grove:"symbol"`
	Cap       string    `grove:"cap"`
	Supply    string    `grove:"supply"`
	Status    string    `grove:"status"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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

	LedgerID  string    `grove:"ledger_id,pk"`
	Address   string    `grove:"address,pk"`
	Amount    string    `grove:"amount"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toBalanceModel(ledgerID id.LedgerID, b book.Balance) *balanceModel {
	return &balanceModel{
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

	LedgerID  string    `grove:"ledger_id,pk"`
	Owner     string    `grove:"owner,pk"`
	Spender   string    `grove:"spender,pk"`
	Amount    string    `grove:"amount"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toAllowanceModel(ledgerID id.LedgerID, a book.Allowance) *allowanceModel {
	return &allowanceModel{
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

	LedgerID  string    `grove:"ledger_id,pk"`
	Role      string    `grove:"role,pk"`
	Address   string    `grove:"address,pk"`
	CreatedAt time.Time `grove:"created_at"`
}

func toRoleModel(ledgerID id.LedgerID, g book.Grant) *roleModel {
	return &roleModel{
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

	ID         string          `grove:"id,pk"`
	LedgerID   string          `grove:"ledger_id"`
	Kind       string          `grove:"kind"`
	Actor      string          `grove:"actor"`
	FromAddr   string          `grove:"from_addr"`
	ToAddr     string          `grove:"to_addr"`
	Recipients json.RawMessage `grove:"recipients,type:jsonb"`
	Amounts    json.RawMessage `grove:"amounts,type:jsonb"`
	Amount     string          `grove:"amount"`
	Role       string          `grove:"role"`
	Supply     string          `grove:"supply"`
	CreatedAt  time.Time       `grove:"created_at"`
}

func toJournalEntryModel(e *journal.Entry) *journalEntryModel {
	recipients, _ := json.Marshal(e.Recipients) //nolint:errcheck // addresses and amounts always encode
	amounts, _ := json.Marshal(e.Amounts)       //nolint:errcheck // addresses and amounts always encode

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
	if len(m.Recipients) > 0 && string(m.Recipients) != "null" {
		if err := json.Unmarshal(m.Recipients, &recipients); err != nil {
			return nil, err
		}
	}
	var amounts []types.Amount
	if len(m.Amounts) > 0 && string(m.Amounts) != "null" {
		if err := json.Unmarshal(m.Amounts, &amounts); err != nil {
			return nil, err
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
