// Package treasury provides a capped fungible-token ledger engine for Go
// applications.
//
// Treasury is designed as a library, not a service. Import it directly into
// your Go application for maximum performance and flexibility. It provides:
//
//   - A balance ledger with a supply cap fixed at genesis
//   - Atomic batch issuance to many recipients in one operation
//   - Role-gated administration (admin, minter, pauser)
//   - A pause switch that freezes every balance-changing operation
//   - Delegated spending through owner-to-spender allowances
//   - An append-only journal with batched persistence
//   - Pluggable lifecycle hooks for metrics and audit trails
//
// # Quick Start
//
// Create a treasury instance with your preferred store:
//
//	import (
//	    "github.com/xraph/treasury"
//	    "github.com/xraph/treasury/store/memory"
//	)
//
//	// Initialize store (memory for demo, use PostgreSQL in production)
//	store := memory.New()
//
//	// Create treasury
//	tr := treasury.New(store, treasury.Config{
//	    Name:     "Acme Credits",
//	    Symbol:   "ACR",
//	    Cap:      treasury.Tokens(1_000_000),
//	    Deployer: "acct_alice",
//	})
//
//	// Start the treasury (migrates, performs genesis, begins workers)
//	if err := tr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer tr.Stop()
//
// # Core Concepts
//
// Roles gate privileged operations. The deployer holds every role after
// genesis and can delegate them:
//
//	tr.GrantRole(ctx, "acct_alice", treasury.RoleMinter, "acct_mint_svc")
//
// Minting creates supply, subject to the cap:
//
//	if err := tr.Mint(ctx, "acct_mint_svc", "acct_bob", treasury.Tokens(100)); err != nil {
//	    // treasury.ErrCapExceeded, treasury.ErrUnauthorized, ...
//	}
//
// Batch minting credits many recipients atomically; either every recipient
// is credited or none are:
//
//	total, err := tr.BatchMint(ctx, "acct_mint_svc",
//	    []treasury.Address{"acct_bob", "acct_carol"},
//	    []treasury.Amount{treasury.Tokens(10), treasury.Tokens(20)},
//	)
//
// Holders move and destroy their own balances, or delegate through
// allowances:
//
//	tr.Transfer(ctx, "acct_bob", "acct_carol", treasury.Tokens(5))
//	tr.Approve(ctx, "acct_bob", "acct_spender", treasury.Tokens(50))
//	tr.TransferFrom(ctx, "acct_spender", "acct_bob", "acct_carol", treasury.Tokens(5))
//	tr.Burn(ctx, "acct_bob", treasury.Tokens(1))
//
// # Amounts
//
// All balances use 256-bit unsigned integer arithmetic; there is no
// floating point anywhere in the accounting path. The Amount type counts
// base units; Tokens applies the conventional 10^18 scale:
//
//	treasury.Units(1)      // 1 base unit
//	treasury.Tokens(1)     // 10^18 base units
//	treasury.MaxAmount()   // sentinel for unlimited allowances
//
// Arithmetic is explicitly checked: Add and Sub return an error on
// overflow or underflow rather than wrapping.
//
// # TypeID
//
// Ledgers and journal entries use TypeID for globally unique, type-safe
// identifiers:
//
//	tre_01h2xcejqtf2nbrexx3vqjhp41  // Ledger ID
//	txn_01h455vb4pex5vsknk084sn02q  // Journal entry ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entries.
package treasury
