// Package audithook bridges Treasury lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin        = (*Extension)(nil)
	_ plugin.OnIssue       = (*Extension)(nil)
	_ plugin.OnTransfer    = (*Extension)(nil)
	_ plugin.OnBurn        = (*Extension)(nil)
	_ plugin.OnApproval    = (*Extension)(nil)
	_ plugin.OnRoleChange  = (*Extension)(nil)
	_ plugin.OnPauseChange = (*Extension)(nil)
	_ plugin.OnCapExceeded = (*Extension)(nil)
	_ plugin.OnRejected    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Treasury lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Issuance hooks
// ──────────────────────────────────────────────────

// OnIssue implements plugin.OnIssue.
func (e *Extension) OnIssue(ctx context.Context, entry *journal.Entry) error {
	switch entry.Kind {
	case journal.KindGenesis:
		return e.record(ctx, ActionGenesisCreated, SeverityInfo, OutcomeSuccess,
			ResourceLedger, entry.Ledger.String(), CategoryIssuance, nil,
			"entry_id", entry.ID.String(),
			"deployer", string(entry.Actor),
			"receiver", string(entry.To),
			"amount", entry.Amount.String(),
		)
	case journal.KindBatchMint:
		return e.record(ctx, ActionBatchMinted, SeverityInfo, OutcomeSuccess,
			ResourceAccount, string(entry.Actor), CategoryIssuance, nil,
			"entry_id", entry.ID.String(),
			"recipients", len(entry.Recipients),
			"total", entry.Amount.String(),
			"supply", entry.Supply.String(),
		)
	default:
		return e.record(ctx, ActionMintCompleted, SeverityInfo, OutcomeSuccess,
			ResourceAccount, string(entry.To), CategoryIssuance, nil,
			"entry_id", entry.ID.String(),
			"minter", string(entry.Actor),
			"amount", entry.Amount.String(),
			"supply", entry.Supply.String(),
		)
	}
}

// OnCapExceeded implements plugin.OnCapExceeded.
func (e *Extension) OnCapExceeded(ctx context.Context, actor types.Address, requested, headroom types.Amount) error {
	return e.record(ctx, ActionCapExceeded, SeverityWarning, OutcomeFailure,
		ResourceLedger, "", CategoryIssuance, nil,
		"actor", string(actor),
		"requested", requested.String(),
		"headroom", headroom.String(),
	)
}

// ──────────────────────────────────────────────────
// Movement hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, entry *journal.Entry) error {
	return e.record(ctx, ActionTransferCompleted, SeverityInfo, OutcomeSuccess,
		ResourceAccount, string(entry.From), CategoryMovement, nil,
		"entry_id", entry.ID.String(),
		"actor", string(entry.Actor),
		"to", string(entry.To),
		"amount", entry.Amount.String(),
		"delegated", entry.Actor != entry.From,
	)
}

// OnBurn implements plugin.OnBurn.
func (e *Extension) OnBurn(ctx context.Context, entry *journal.Entry) error {
	return e.record(ctx, ActionBurnCompleted, SeverityInfo, OutcomeSuccess,
		ResourceAccount, string(entry.From), CategoryMovement, nil,
		"entry_id", entry.ID.String(),
		"actor", string(entry.Actor),
		"amount", entry.Amount.String(),
		"supply", entry.Supply.String(),
	)
}

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, entry *journal.Entry) error {
	action := ActionApprovalSet
	if entry.Amount.IsZero() {
		action = ActionApprovalCleared
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceAllowance, string(entry.From), CategoryMovement, nil,
		"entry_id", entry.ID.String(),
		"owner", string(entry.From),
		"spender", string(entry.To),
		"amount", entry.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnRoleChange implements plugin.OnRoleChange.
func (e *Extension) OnRoleChange(ctx context.Context, entry *journal.Entry) error {
	action := ActionRoleGranted
	if entry.Kind == journal.KindRevoke {
		action = ActionRoleRevoked
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceRole, string(entry.To), CategoryAccess, nil,
		"entry_id", entry.ID.String(),
		"admin", string(entry.Actor),
		"role", string(entry.Role),
		"account", string(entry.To),
	)
}

// OnPauseChange implements plugin.OnPauseChange.
func (e *Extension) OnPauseChange(ctx context.Context, entry *journal.Entry) error {
	if entry.Kind == journal.KindPause {
		return e.record(ctx, ActionLedgerPaused, SeverityWarning, OutcomeSuccess,
			ResourceLedger, entry.Ledger.String(), CategoryAdmin, nil,
			"entry_id", entry.ID.String(),
			"pauser", string(entry.Actor),
		)
	}
	return e.record(ctx, ActionLedgerUnpaused, SeverityInfo, OutcomeSuccess,
		ResourceLedger, entry.Ledger.String(), CategoryAdmin, nil,
		"entry_id", entry.ID.String(),
		"pauser", string(entry.Actor),
	)
}

// OnRejected implements plugin.OnRejected.
func (e *Extension) OnRejected(ctx context.Context, kind journal.Kind, actor types.Address, opErr error) error {
	return e.record(ctx, ActionOperationRejected, SeverityWarning, OutcomeFailure,
		ResourceLedger, "", CategoryAccess, opErr,
		"operation", string(kind),
		"actor", string(actor),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
