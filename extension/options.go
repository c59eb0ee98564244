package extension

import (
	"time"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/store"
)

// Option configures the Treasury Forge extension.
type Option func(*Extension)

// WithStore sets the store for the treasury engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTreasuryOption passes a treasury.Option through to the underlying engine.
func WithTreasuryOption(opt treasury.Option) Option {
	return func(e *Extension) {
		e.treasuryOpts = append(e.treasuryOpts, opt)
	}
}

// WithPlugin registers a treasury plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.treasuryOpts = append(e.treasuryOpts, treasury.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithLedgerIdentity sets the ledger name and token symbol.
func WithLedgerIdentity(name, symbol string) Option {
	return func(e *Extension) {
		e.config.Name = name
		e.config.Symbol = symbol
	}
}

// WithCap sets the maximum total supply in base units, as a base-10 string.
func WithCap(supplyCap string) Option {
	return func(e *Extension) { e.config.Cap = supplyCap }
}

// WithDeployer sets the address that receives every role at genesis.
func WithDeployer(addr string) Option {
	return func(e *Extension) { e.config.Deployer = addr }
}

// WithInitialMint credits receiver with amount (base units, base-10 string)
// at genesis.
func WithInitialMint(receiver, amount string) Option {
	return func(e *Extension) {
		e.config.InitialReceiver = receiver
		e.config.InitialAmount = amount
	}
}

// WithDisableMigrate prevents the automatic engine start during extension
// startup.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithJournalBatchSize sets the number of journal entries to buffer before
// flushing.
func WithJournalBatchSize(size int) Option {
	return func(e *Extension) { e.config.JournalBatchSize = size }
}

// WithJournalFlushInterval sets how frequently the journal buffer is flushed.
func WithJournalFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.JournalFlushInterval = d }
}
