package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/treasury/journal"
	"github.com/xraph/treasury/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onEntry           []OnEntry
	onJournalFlushed  []OnJournalFlushed
	onIssue           []OnIssue
	onCapExceeded     []OnCapExceeded
	onTransfer        []OnTransfer
	onBurn            []OnBurn
	onApproval        []OnApproval
	onRoleChange      []OnRoleChange
	onPauseChange     []OnPauseChange
	onRejected        []OnRejected
	addressValidators []AddressValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEntry); ok {
		r.onEntry = append(r.onEntry, v)
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
	}
	if v, ok := p.(OnIssue); ok {
		r.onIssue = append(r.onIssue, v)
	}
	if v, ok := p.(OnCapExceeded); ok {
		r.onCapExceeded = append(r.onCapExceeded, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnBurn); ok {
		r.onBurn = append(r.onBurn, v)
	}
	if v, ok := p.(OnApproval); ok {
		r.onApproval = append(r.onApproval, v)
	}
	if v, ok := p.(OnRoleChange); ok {
		r.onRoleChange = append(r.onRoleChange, v)
	}
	if v, ok := p.(OnPauseChange); ok {
		r.onPauseChange = append(r.onPauseChange, v)
	}
	if v, ok := p.(OnRejected); ok {
		r.onRejected = append(r.onRejected, v)
	}
	if v, ok := p.(AddressValidator); ok {
		r.addressValidators = append(r.addressValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnEntry)(nil)).Elem(), "OnEntry")
	checkInterface(reflect.TypeOf((*OnJournalFlushed)(nil)).Elem(), "OnJournalFlushed")
	checkInterface(reflect.TypeOf((*OnIssue)(nil)).Elem(), "OnIssue")
	checkInterface(reflect.TypeOf((*OnCapExceeded)(nil)).Elem(), "OnCapExceeded")
	checkInterface(reflect.TypeOf((*OnTransfer)(nil)).Elem(), "OnTransfer")
	checkInterface(reflect.TypeOf((*OnBurn)(nil)).Elem(), "OnBurn")
	checkInterface(reflect.TypeOf((*OnApproval)(nil)).Elem(), "OnApproval")
	checkInterface(reflect.TypeOf((*OnRoleChange)(nil)).Elem(), "OnRoleChange")
	checkInterface(reflect.TypeOf((*OnPauseChange)(nil)).Elem(), "OnPauseChange")
	checkInterface(reflect.TypeOf((*OnRejected)(nil)).Elem(), "OnRejected")
	checkInterface(reflect.TypeOf((*AddressValidator)(nil)).Elem(), "AddressValidator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEntry dispatches a committed entry to OnEntry hooks and then to the
// hooks specific to the entry's kind.
func (r *Registry) EmitEntry(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	all := r.onEntry
	r.mu.RUnlock()

	for _, p := range all {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEntry(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnEntry failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}

	switch e.Kind {
	case journal.KindGenesis, journal.KindMint, journal.KindBatchMint:
		r.emitIssue(ctx, e)
	case journal.KindTransfer:
		r.emitTransfer(ctx, e)
	case journal.KindBurn:
		r.emitBurn(ctx, e)
	case journal.KindApproval:
		r.emitApproval(ctx, e)
	case journal.KindGrant, journal.KindRevoke:
		r.emitRoleChange(ctx, e)
	case journal.KindPause, journal.KindUnpause:
		r.emitPauseChange(ctx, e)
	}
}

func (r *Registry) emitIssue(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onIssue
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnIssue(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnIssue failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitTransfer(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onTransfer
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransfer(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnTransfer failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitBurn(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onBurn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBurn(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnBurn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitApproval(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onApproval
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnApproval(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnApproval failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitRoleChange(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onRoleChange
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRoleChange(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnRoleChange failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitPauseChange(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onPauseChange
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPauseChange(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnPauseChange failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCapExceeded emits a cap exceeded event.
func (r *Registry) EmitCapExceeded(ctx context.Context, actor types.Address, requested, headroom types.Amount) {
	r.mu.RLock()
	plugins := r.onCapExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCapExceeded(ctx, actor, requested, headroom)
		}); err != nil {
			r.logger.Warn("plugin OnCapExceeded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRejected emits a rejected operation event.
func (r *Registry) EmitRejected(ctx context.Context, kind journal.Kind, actor types.Address, opErr error) {
	r.mu.RLock()
	plugins := r.onRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRejected(ctx, kind, actor, opErr)
		}); err != nil {
			r.logger.Warn("plugin OnRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitJournalFlushed emits a journal flushed event.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onJournalFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnJournalFlushed(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnJournalFlushed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// ValidateAddress runs every registered address validator against the
// address. The first validator to object wins.
func (r *Registry) ValidateAddress(ctx context.Context, addr types.Address) error {
	r.mu.RLock()
	plugins := r.addressValidators
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.ValidateAddress(addr)
		}); err != nil {
			return fmt.Errorf("plugin %s rejected address %s: %w", p.Name(), addr, err)
		}
	}
	return nil
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
