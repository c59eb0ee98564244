package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Treasury store.
var Migrations = migrate.NewGroup("treasury")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_treasury_ledgers",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_ledgers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    symbol     TEXT NOT NULL DEFAULT '',
    cap        TEXT NOT NULL DEFAULT '0',
    supply     TEXT NOT NULL DEFAULT '0',
    status     TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_ledgers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_balances",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_balances (
    ledger_id  TEXT NOT NULL,
    address    TEXT NOT NULL,
    amount     TEXT NOT NULL DEFAULT '0',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (ledger_id, address)
);

CREATE INDEX IF NOT EXISTS idx_treasury_balances_ledger ON treasury_balances (ledger_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_allowances",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_allowances (
    ledger_id  TEXT NOT NULL,
    owner      TEXT NOT NULL,
    spender    TEXT NOT NULL,
    amount     TEXT NOT NULL DEFAULT '0',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (ledger_id, owner, spender)
);

CREATE INDEX IF NOT EXISTS idx_treasury_allowances_owner ON treasury_allowances (ledger_id, owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_allowances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_roles",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_roles (
    ledger_id  TEXT NOT NULL,
    role       TEXT NOT NULL,
    address    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (ledger_id, role, address)
);

CREATE INDEX IF NOT EXISTS idx_treasury_roles_address ON treasury_roles (ledger_id, address);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_treasury_journal",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS treasury_journal (
    id         TEXT PRIMARY KEY,
    ledger_id  TEXT NOT NULL,
    kind       TEXT NOT NULL,
    actor      TEXT NOT NULL DEFAULT '',
    from_addr  TEXT NOT NULL DEFAULT '',
    to_addr    TEXT NOT NULL DEFAULT '',
    recipients JSONB NOT NULL DEFAULT '[]',
    amounts    JSONB NOT NULL DEFAULT '[]',
    amount     TEXT NOT NULL DEFAULT '0',
    role       TEXT NOT NULL DEFAULT '',
    supply     TEXT NOT NULL DEFAULT '0',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_treasury_journal_ledger_time ON treasury_journal (ledger_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_treasury_journal_kind ON treasury_journal (ledger_id, kind);
CREATE INDEX IF NOT EXISTS idx_treasury_journal_actor ON treasury_journal (ledger_id, actor);
CREATE INDEX IF NOT EXISTS idx_treasury_journal_from ON treasury_journal (ledger_id, from_addr);
CREATE INDEX IF NOT EXISTS idx_treasury_journal_to ON treasury_journal (ledger_id, to_addr);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS treasury_journal`)
				return err
			},
		},
	)
}
