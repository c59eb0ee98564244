// Package plugin provides an extensible plugin system for Treasury.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnEntry is called for every committed ledger operation, in commit order.
type OnEntry interface {
	Plugin
	OnEntry(ctx context.Context, e *journal.Entry) error
}

// OnJournalFlushed is called when buffered journal entries are flushed to
// the store.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Issuance hooks
// ──────────────────────────────────────────────────

// OnIssue is called when supply is created: genesis, mint and batch mint.
type OnIssue interface {
	Plugin
	OnIssue(ctx context.Context, e *journal.Entry) error
}

// OnCapExceeded is called when an issuance is rejected because it would
// push total supply above the cap.
type OnCapExceeded interface {
	Plugin
	OnCapExceeded(ctx context.Context, actor types.Address, requested, headroom types.Amount) error
}

// ──────────────────────────────────────────────────
// Movement hooks
// ──────────────────────────────────────────────────

// OnTransfer is called for direct and delegated transfers.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, e *journal.Entry) error
}

// OnBurn is called when supply is destroyed.
type OnBurn interface {
	Plugin
	OnBurn(ctx context.Context, e *journal.Entry) error
}

// OnApproval is called when an allowance is set or revoked.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, e *journal.Entry) error
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnRoleChange is called when a role is granted or revoked.
type OnRoleChange interface {
	Plugin
	OnRoleChange(ctx context.Context, e *journal.Entry) error
}

// OnPauseChange is called when the ledger is paused or unpaused.
type OnPauseChange interface {
	Plugin
	OnPauseChange(ctx context.Context, e *journal.Entry) error
}

// OnRejected is called when the ledger refuses an operation: a missing
// role, a paused ledger, an overdrawn balance. The kind names the
// operation that was attempted.
type OnRejected interface {
	Plugin
	OnRejected(ctx context.Context, kind journal.Kind, actor types.Address, err error) error
}

// ──────────────────────────────────────────────────
// Address validators
// ──────────────────────────────────────────────────

// AddressValidator vets account identifiers before they enter the ledger.
// Hosts use it to enforce their own address format on mint recipients,
// transfer destinations and approval spenders.
type AddressValidator interface {
	Plugin
	ValidateAddress(addr types.Address) error
}
