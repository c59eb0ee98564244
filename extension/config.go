package extension

import "time"

// Config holds the Treasury extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.treasury" or "treasury" keys).
type Config struct {
	// Name is the human-readable ledger name.
	Name string `json:"name" mapstructure:"name" yaml:"name"`

	// Symbol is the ticker for the ledger's token.
	Symbol string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`

	// Cap is the maximum total supply in base units, as a base-10 string.
	Cap string `json:"cap" mapstructure:"cap" yaml:"cap"`

	// Deployer is the address that receives every role at genesis.
	Deployer string `json:"deployer" mapstructure:"deployer" yaml:"deployer"`

	// InitialReceiver is the address credited with InitialAmount at genesis.
	InitialReceiver string `json:"initial_receiver" mapstructure:"initial_receiver" yaml:"initial_receiver"`

	// InitialAmount is the genesis mint in base units, as a base-10 string.
	// Empty means no initial mint.
	InitialAmount string `json:"initial_amount" mapstructure:"initial_amount" yaml:"initial_amount"`

	// DisableMigrate prevents the automatic engine start (store migration
	// plus genesis or restore) during extension startup. The host must call
	// Start on the engine itself before using it.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// JournalBatchSize is the number of journal entries to buffer before
	// flushing to the store (default: 100).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently the journal buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		JournalBatchSize:     100,
		JournalFlushInterval: 5 * time.Second,
	}
}
