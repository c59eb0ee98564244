// Package observability provides a metrics extension for Treasury that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnIssue          = (*MetricsExtension)(nil)
	_ plugin.OnTransfer       = (*MetricsExtension)(nil)
	_ plugin.OnBurn           = (*MetricsExtension)(nil)
	_ plugin.OnApproval       = (*MetricsExtension)(nil)
	_ plugin.OnRoleChange     = (*MetricsExtension)(nil)
	_ plugin.OnPauseChange    = (*MetricsExtension)(nil)
	_ plugin.OnCapExceeded    = (*MetricsExtension)(nil)
	_ plugin.OnRejected       = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Treasury plugin to automatically track ledger metrics.
//
// Token amounts are 256-bit and never projected into float64 samples;
// histograms observe counts and latencies only.
type MetricsExtension struct {
	factory MetricFactory

	// Issuance metrics
	GenesisCreated Counter
	MintCompleted  Counter
	BatchMinted    Counter
	BatchMintSize  Histogram
	CapRejections  Counter

	// Movement metrics
	TransferCompleted Counter
	TransferDelegated Counter
	BurnCompleted     Counter
	BurnDelegated     Counter
	ApprovalSet       Counter
	ApprovalCleared   Counter

	// Administration metrics
	RoleGranted    Counter
	RoleRevoked    Counter
	LedgerPaused   Counter
	LedgerUnpaused Counter

	// Journal metrics
	JournalFlushes      Counter
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram

	// Error metrics
	OperationsRejected Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Issuance metrics
		GenesisCreated: factory.Counter("treasury.issue.genesis"),
		MintCompleted:  factory.Counter("treasury.issue.minted"),
		BatchMinted:    factory.Counter("treasury.issue.batch_minted"),
		BatchMintSize:  factory.Histogram("treasury.issue.batch.size"),
		CapRejections:  factory.Counter("treasury.issue.cap_rejections"),

		// Movement metrics
		TransferCompleted: factory.Counter("treasury.transfer.completed"),
		TransferDelegated: factory.Counter("treasury.transfer.delegated"),
		BurnCompleted:     factory.Counter("treasury.burn.completed"),
		BurnDelegated:     factory.Counter("treasury.burn.delegated"),
		ApprovalSet:       factory.Counter("treasury.approval.set"),
		ApprovalCleared:   factory.Counter("treasury.approval.cleared"),

		// Administration metrics
		RoleGranted:    factory.Counter("treasury.role.granted"),
		RoleRevoked:    factory.Counter("treasury.role.revoked"),
		LedgerPaused:   factory.Counter("treasury.ledger.paused"),
		LedgerUnpaused: factory.Counter("treasury.ledger.unpaused"),

		// Journal metrics
		JournalFlushes:      factory.Counter("treasury.journal.flushes"),
		JournalBatchSize:    factory.Histogram("treasury.journal.batch.size"),
		JournalFlushLatency: factory.Histogram("treasury.journal.flush.latency_ms"),

		// Error metrics
		OperationsRejected: factory.Counter("treasury.operations.rejected"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Issuance hooks
// ──────────────────────────────────────────────────

// OnIssue implements plugin.OnIssue.
func (m *MetricsExtension) OnIssue(_ context.Context, e *journal.Entry) error {
	switch e.Kind {
	case journal.KindGenesis:
		m.GenesisCreated.Inc()
	case journal.KindMint:
		m.MintCompleted.Inc()
	case journal.KindBatchMint:
		m.BatchMinted.Inc()
		m.BatchMintSize.Observe(float64(len(e.Recipients)))
	}
	return nil
}

// OnCapExceeded implements plugin.OnCapExceeded.
func (m *MetricsExtension) OnCapExceeded(_ context.Context, _ types.Address, _, _ types.Amount) error {
	m.CapRejections.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Movement hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, e *journal.Entry) error {
	m.TransferCompleted.Inc()
	if e.Actor != e.From {
		m.TransferDelegated.Inc()
	}
	return nil
}

// OnBurn implements plugin.OnBurn.
func (m *MetricsExtension) OnBurn(_ context.Context, e *journal.Entry) error {
	m.BurnCompleted.Inc()
	if e.Actor != e.From {
		m.BurnDelegated.Inc()
	}
	return nil
}

// OnApproval implements plugin.OnApproval.
func (m *MetricsExtension) OnApproval(_ context.Context, e *journal.Entry) error {
	if e.Amount.IsZero() {
		m.ApprovalCleared.Inc()
	} else {
		m.ApprovalSet.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnRoleChange implements plugin.OnRoleChange.
func (m *MetricsExtension) OnRoleChange(_ context.Context, e *journal.Entry) error {
	switch e.Kind {
	case journal.KindGrant:
		m.RoleGranted.Inc()
	case journal.KindRevoke:
		m.RoleRevoked.Inc()
	}
	return nil
}

// OnPauseChange implements plugin.OnPauseChange.
func (m *MetricsExtension) OnPauseChange(_ context.Context, e *journal.Entry) error {
	switch e.Kind {
	case journal.KindPause:
		m.LedgerPaused.Inc()
	case journal.KindUnpause:
		m.LedgerUnpaused.Inc()
	}
	return nil
}

// OnRejected implements plugin.OnRejected.
func (m *MetricsExtension) OnRejected(_ context.Context, _ journal.Kind, _ types.Address, _ error) error {
	m.OperationsRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalFlushes.Inc()
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
