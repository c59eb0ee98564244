// Package book implements the in-memory bookkeeping core of a treasury
// ledger: balances, total supply, the supply cap, role membership, the
// pause flag and spending allowances.
//
// A Book is the single source of truth while the process runs. Every
// balance movement — mint, transfer, burn — funnels through one internal
// mutation path that validates the whole movement before the first write,
// so a failed operation leaves no partial state behind. Persistence is
// layered on top by the engine via Snapshot and Restore.
package book

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/treasury/types"
)

// Sentinel errors returned by book operations.
var (
	// ErrUnauthorized is returned when the acting account does not hold
	// the role an operation requires.
	ErrUnauthorized = errors.New("treasury: unauthorized")

	// ErrPaused is returned when a balance-changing operation is attempted
	// while the ledger is paused.
	ErrPaused = errors.New("treasury: ledger paused")

	// ErrCapExceeded is returned when a mint would push total supply
	// above the ledger cap.
	ErrCapExceeded = errors.New("treasury: cap exceeded")

	// ErrLengthMismatch is returned by batch issuance when the recipient
	// and amount slices differ in length.
	ErrLengthMismatch = errors.New("treasury: recipients and amounts length mismatch")

	// ErrInsufficientBalance is returned when a debit exceeds the
	// account's balance.
	ErrInsufficientBalance = errors.New("treasury: insufficient balance")

	// ErrInsufficientAllowance is returned when a delegated spend exceeds
	// the spender's remaining allowance.
	ErrInsufficientAllowance = errors.New("treasury: insufficient allowance")

	// ErrZeroAddress is returned when an operation names an empty account.
	ErrZeroAddress = errors.New("treasury: zero address")

	// ErrInvalidCap is returned when a ledger is created with a zero cap.
	ErrInvalidCap = errors.New("treasury: cap must be positive")

	// ErrCorruptSnapshot is returned by Restore when persisted state
	// violates the ledger invariants.
	ErrCorruptSnapshot = errors.New("treasury: snapshot violates ledger invariants")
)

// Book holds the authoritative state of one ledger. All methods are safe
// for concurrent use.
type Book struct {
	mu sync.RWMutex

	cap    types.Amount // fixed at construction
	supply types.Amount
	status Status

	balances   map[types.Address]types.Amount
	allowances map[types.Address]map[types.Address]types.Amount
	roles      map[types.Role]map[types.Address]struct{}
}

// New creates a ledger with the given hard supply cap. The deployer is
// granted every role. If initialAmount is non-zero it is minted to
// initialReceiver, subject to the cap like any other mint.
func New(cap types.Amount, deployer types.Address, initialReceiver types.Address, initialAmount types.Amount) (*Book, error) {
	if cap.IsZero() {
		return nil, ErrInvalidCap
	}
	if deployer.IsZero() {
		return nil, ErrZeroAddress
	}

	b := newEmpty(cap)
	for _, role := range types.Roles() {
		b.roles[role][deployer] = struct{}{}
	}

	if !initialAmount.IsZero() {
		if initialReceiver.IsZero() {
			return nil, ErrZeroAddress
		}
		if err := b.applyDelta(delta{
			credits: []posting{{addr: initialReceiver, amount: initialAmount}},
			mint:    initialAmount,
		}); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func newEmpty(cap types.Amount) *Book {
	b := &Book{
		cap:        cap,
		status:     StatusActive,
		balances:   make(map[types.Address]types.Amount),
		allowances: make(map[types.Address]map[types.Address]types.Amount),
		roles:      make(map[types.Role]map[types.Address]struct{}, len(types.Roles())),
	}
	for _, role := range types.Roles() {
		b.roles[role] = make(map[types.Address]struct{})
	}
	return b
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutation path
// ─────────────────────────────────────────────────────────────────────────────

// posting is a single balance movement within a delta.
type posting struct {
	addr   types.Address
	amount types.Amount
}

// delta is an atomic set of balance movements plus the supply change they
// imply. It is the only way balances or supply change: validation runs in
// full before the first write, so a rejected delta leaves no trace.
type delta struct {
	debits  []posting
	credits []posting
	mint    types.Amount
	burn    types.Amount
}

// applyDelta validates and commits a delta. Callers hold b.mu.
func (b *Book) applyDelta(d delta) error {
	if b.status == StatusPaused {
		return ErrPaused
	}

	if !d.mint.IsZero() {
		next, err := b.supply.Add(d.mint)
		if err != nil {
			return err
		}
		if next.GreaterThan(b.cap) {
			return ErrCapExceeded
		}
	}

	// Debits may repeat an address; sufficiency is checked against the
	// per-address total, not posting by posting.
	var owed map[types.Address]types.Amount
	if len(d.debits) > 0 {
		owed = make(map[types.Address]types.Amount, len(d.debits))
		for i := 0; i < len(d.debits); i++ {
			total, err := owed[d.debits[i].addr].Add(d.debits[i].amount)
			if err != nil {
				return err
			}
			owed[d.debits[i].addr] = total
		}
		for addr, total := range owed {
			if b.balances[addr].LessThan(total) {
				return ErrInsufficientBalance
			}
		}
	}

	// Commit. Nothing below can fail: debits were checked above, and
	// credits are bounded by supply+mint <= cap.
	for addr, total := range owed {
		next, _ := b.balances[addr].Sub(total)
		b.setBalance(addr, next)
	}
	for i := 0; i < len(d.credits); i++ {
		next, _ := b.balances[d.credits[i].addr].Add(d.credits[i].amount)
		b.setBalance(d.credits[i].addr, next)
	}
	if !d.mint.IsZero() {
		b.supply, _ = b.supply.Add(d.mint)
	}
	if !d.burn.IsZero() {
		b.supply, _ = b.supply.Sub(d.burn)
	}
	return nil
}

// setBalance writes a balance, dropping the map entry when it hits zero so
// emptied accounts do not accumulate.
func (b *Book) setBalance(addr types.Address, amount types.Amount) {
	if amount.IsZero() {
		delete(b.balances, addr)
		return
	}
	b.balances[addr] = amount
}

func (b *Book) requireRole(role types.Role, actor types.Address) error {
	if _, ok := b.roles[role][actor]; !ok {
		return fmt.Errorf("%w: %s requires role %s", ErrUnauthorized, actor, role)
	}
	return nil
}

func (b *Book) requireActive() error {
	if b.status == StatusPaused {
		return ErrPaused
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Issuance
// ─────────────────────────────────────────────────────────────────────────────

// Mint credits amount to a single recipient and raises supply by the same
// amount. The actor must hold the minter role and the ledger must be
// active; the post-mint supply must not exceed the cap.
func (b *Book) Mint(actor, to types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireRole(types.RoleMinter, actor); err != nil {
		return err
	}
	if to.IsZero() {
		return ErrZeroAddress
	}
	return b.applyDelta(delta{
		credits: []posting{{addr: to, amount: amount}},
		mint:    amount,
	})
}

// BatchMint credits each recipient its matching amount in one atomic
// operation and returns the total minted. Validation order: the actor's
// minter role, the pause flag, slice lengths, recipient addresses, the
// overflow-checked batch total, and finally the cap. Either every
// recipient is credited or none is.
func (b *Book) BatchMint(actor types.Address, recipients []types.Address, amounts []types.Amount) (types.Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireRole(types.RoleMinter, actor); err != nil {
		return types.Zero(), err
	}
	if err := b.requireActive(); err != nil {
		return types.Zero(), err
	}
	if len(recipients) != len(amounts) {
		return types.Zero(), fmt.Errorf("%w: %d recipients, %d amounts", ErrLengthMismatch, len(recipients), len(amounts))
	}
	for i := 0; i < len(recipients); i++ {
		if recipients[i].IsZero() {
			return types.Zero(), ErrZeroAddress
		}
	}
	total, err := types.Sum(amounts...)
	if err != nil {
		return types.Zero(), err
	}

	credits := make([]posting, len(recipients))
	for i := 0; i < len(recipients); i++ {
		credits[i] = posting{addr: recipients[i], amount: amounts[i]}
	}
	if err := b.applyDelta(delta{credits: credits, mint: total}); err != nil {
		return types.Zero(), err
	}
	return total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transfers and burns
// ─────────────────────────────────────────────────────────────────────────────

// Transfer moves amount from one account to another. Supply is unchanged.
func (b *Book) Transfer(from, to types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	return b.applyDelta(delta{
		debits:  []posting{{addr: from, amount: amount}},
		credits: []posting{{addr: to, amount: amount}},
	})
}

// TransferFrom moves amount from the owner to the recipient on the
// spender's authority. The spend is charged against the owner→spender
// allowance unless that allowance is the maximum amount, which acts as
// unlimited and is never decremented.
func (b *Book) TransferFrom(spender, from, to types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if err := b.requireActive(); err != nil {
		return err
	}
	allowed := b.allowanceLocked(from, spender)
	if allowed.LessThan(amount) {
		return ErrInsufficientAllowance
	}
	if err := b.applyDelta(delta{
		debits:  []posting{{addr: from, amount: amount}},
		credits: []posting{{addr: to, amount: amount}},
	}); err != nil {
		return err
	}
	if !allowed.IsMax() {
		remaining, _ := allowed.Sub(amount) // validated above
		b.setAllowance(from, spender, remaining)
	}
	return nil
}

// Burn debits amount from the owner and lowers supply by the same amount,
// freeing headroom under the cap.
func (b *Book) Burn(owner types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if owner.IsZero() {
		return ErrZeroAddress
	}
	return b.applyDelta(delta{
		debits: []posting{{addr: owner, amount: amount}},
		burn:   amount,
	})
}

// BurnFrom burns from the owner's balance on the spender's authority,
// charged against the owner→spender allowance like TransferFrom.
func (b *Book) BurnFrom(spender, owner types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if spender.IsZero() || owner.IsZero() {
		return ErrZeroAddress
	}
	if err := b.requireActive(); err != nil {
		return err
	}
	allowed := b.allowanceLocked(owner, spender)
	if allowed.LessThan(amount) {
		return ErrInsufficientAllowance
	}
	if err := b.applyDelta(delta{
		debits: []posting{{addr: owner, amount: amount}},
		burn:   amount,
	}); err != nil {
		return err
	}
	if !allowed.IsMax() {
		remaining, _ := allowed.Sub(amount) // validated above
		b.setAllowance(owner, spender, remaining)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Allowances
// ─────────────────────────────────────────────────────────────────────────────

// Approve sets the spender's allowance over the owner's balance to exactly
// amount, replacing any previous value. Approving zero revokes the
// allowance; approving the maximum amount grants unlimited spending.
func (b *Book) Approve(owner, spender types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	if err := b.requireActive(); err != nil {
		return err
	}
	b.setAllowance(owner, spender, amount)
	return nil
}

// setAllowance writes an allowance, dropping empty entries. Callers hold b.mu.
func (b *Book) setAllowance(owner, spender types.Address, amount types.Amount) {
	if amount.IsZero() {
		if inner, ok := b.allowances[owner]; ok {
			delete(inner, spender)
			if len(inner) == 0 {
				delete(b.allowances, owner)
			}
		}
		return
	}
	inner, ok := b.allowances[owner]
	if !ok {
		inner = make(map[types.Address]types.Amount)
		b.allowances[owner] = inner
	}
	inner[spender] = amount
}

func (b *Book) allowanceLocked(owner, spender types.Address) types.Amount {
	return b.allowances[owner][spender]
}

// ─────────────────────────────────────────────────────────────────────────────
// Pause gate
// ─────────────────────────────────────────────────────────────────────────────

// Pause halts every balance-changing operation. The actor must hold the
// pauser role. Pausing an already-paused ledger is a no-op; the returned
// flag reports whether the state actually changed.
func (b *Book) Pause(actor types.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireRole(types.RolePauser, actor); err != nil {
		return false, err
	}
	if b.status == StatusPaused {
		return false, nil
	}
	b.status = StatusPaused
	return true, nil
}

// Unpause resumes normal operation. The actor must hold the pauser role.
// Unpausing an active ledger is a no-op; the returned flag reports whether
// the state actually changed.
func (b *Book) Unpause(actor types.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireRole(types.RolePauser, actor); err != nil {
		return false, err
	}
	if b.status == StatusActive {
		return false, nil
	}
	b.status = StatusActive
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Role registry
// ─────────────────────────────────────────────────────────────────────────────

// Grant adds the account to a role. The actor must hold the admin role.
// Granting a role the account already holds is a no-op; the returned flag
// reports whether membership actually changed. Role changes are not
// blocked by the pause flag.
func (b *Book) Grant(actor types.Address, role types.Role, account types.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireRole(types.RoleAdmin, actor); err != nil {
		return false, err
	}
	if !role.Valid() {
		return false, types.ErrUnknownRole
	}
	if account.IsZero() {
		return false, ErrZeroAddress
	}
	if _, ok := b.roles[role][account]; ok {
		return false, nil
	}
	b.roles[role][account] = struct{}{}
	return true, nil
}

// Revoke removes the account from a role. The actor must hold the admin
// role; admins may revoke their own roles, including admin itself.
// Revoking a role the account does not hold is a no-op; the returned flag
// reports whether membership actually changed.
func (b *Book) Revoke(actor types.Address, role types.Role, account types.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireRole(types.RoleAdmin, actor); err != nil {
		return false, err
	}
	if !role.Valid() {
		return false, types.ErrUnknownRole
	}
	if account.IsZero() {
		return false, ErrZeroAddress
	}
	if _, ok := b.roles[role][account]; !ok {
		return false, nil
	}
	delete(b.roles[role], account)
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// BalanceOf returns the account's balance. Unknown accounts hold zero.
func (b *Book) BalanceOf(addr types.Address) types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[addr]
}

// TotalSupply returns the sum of all balances.
func (b *Book) TotalSupply() types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.supply
}

// Cap returns the immutable supply ceiling.
func (b *Book) Cap() types.Amount {
	return b.cap
}

// Headroom returns how much supply can still be minted before the cap.
func (b *Book) Headroom() types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	room, _ := b.cap.Sub(b.supply) // supply <= cap always
	return room
}

// HasRole reports whether the account holds the role.
func (b *Book) HasRole(role types.Role, addr types.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.roles[role][addr]
	return ok
}

// Allowance returns the spender's remaining allowance over the owner's
// balance. Unknown pairs hold zero.
func (b *Book) Allowance(owner, spender types.Address) types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.allowanceLocked(owner, spender)
}

// Status returns the current pause state.
func (b *Book) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Paused reports whether the ledger is paused.
func (b *Book) Paused() bool {
	return b.Status() == StatusPaused
}

// HolderCount returns the number of accounts with a non-zero balance.
func (b *Book) HolderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.balances)
}

// BalancesFor returns the current balance of each given account, zero
// included, so callers can persist accounts that were just emptied.
func (b *Book) BalancesFor(addrs []types.Address) []Balance {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Balance, len(addrs))
	for i, addr := range addrs {
		out[i] = Balance{Address: addr, Amount: b.balances[addr]}
	}
	return out
}

// AllowanceFor returns the current state of one owner→spender allowance,
// zero included.
func (b *Book) AllowanceFor(owner, spender types.Address) Allowance {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Allowance{Owner: owner, Spender: spender, Amount: b.allowanceLocked(owner, spender)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshot and restore
// ─────────────────────────────────────────────────────────────────────────────

// Snapshot copies the full ledger state. The copy is detached: later
// mutations of the book do not affect it. Entries are sorted for
// deterministic output.
func (b *Book) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := &Snapshot{
		Cap:        b.cap,
		Supply:     b.supply,
		Status:     b.status,
		Balances:   make([]Balance, 0, len(b.balances)),
		Allowances: make([]Allowance, 0),
		Grants:     make([]Grant, 0),
	}
	for addr, amount := range b.balances {
		snap.Balances = append(snap.Balances, Balance{Address: addr, Amount: amount})
	}
	for owner, inner := range b.allowances {
		for spender, amount := range inner {
			snap.Allowances = append(snap.Allowances, Allowance{Owner: owner, Spender: spender, Amount: amount})
		}
	}
	for role, members := range b.roles {
		for addr := range members {
			snap.Grants = append(snap.Grants, Grant{Role: role, Address: addr})
		}
	}

	sort.Slice(snap.Balances, func(i, j int) bool {
		return snap.Balances[i].Address < snap.Balances[j].Address
	})
	sort.Slice(snap.Allowances, func(i, j int) bool {
		if snap.Allowances[i].Owner != snap.Allowances[j].Owner {
			return snap.Allowances[i].Owner < snap.Allowances[j].Owner
		}
		return snap.Allowances[i].Spender < snap.Allowances[j].Spender
	})
	sort.Slice(snap.Grants, func(i, j int) bool {
		if snap.Grants[i].Role != snap.Grants[j].Role {
			return snap.Grants[i].Role < snap.Grants[j].Role
		}
		return snap.Grants[i].Address < snap.Grants[j].Address
	})
	return snap
}

// Restore rebuilds a book from persisted state, re-checking every ledger
// invariant. It returns ErrCorruptSnapshot when the snapshot's balances do
// not sum to its supply, the supply exceeds the cap, or entries are
// malformed.
func Restore(snap *Snapshot) (*Book, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrCorruptSnapshot)
	}
	if snap.Cap.IsZero() {
		return nil, fmt.Errorf("%w: zero cap", ErrCorruptSnapshot)
	}
	status := snap.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrCorruptSnapshot, snap.Status)
	}

	b := newEmpty(snap.Cap)
	b.status = status

	sum := types.Zero()
	seen := make(map[types.Address]struct{}, len(snap.Balances))
	for _, bal := range snap.Balances {
		if bal.Address.IsZero() {
			return nil, fmt.Errorf("%w: balance with zero address", ErrCorruptSnapshot)
		}
		if _, ok := seen[bal.Address]; ok {
			return nil, fmt.Errorf("%w: duplicate balance for %s", ErrCorruptSnapshot, bal.Address)
		}
		seen[bal.Address] = struct{}{}
		if bal.Amount.IsZero() {
			continue
		}
		next, err := sum.Add(bal.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: balances overflow", ErrCorruptSnapshot)
		}
		sum = next
		b.balances[bal.Address] = bal.Amount
	}
	if !sum.Equal(snap.Supply) {
		return nil, fmt.Errorf("%w: balances sum to %s, supply is %s", ErrCorruptSnapshot, sum, snap.Supply)
	}
	if snap.Supply.GreaterThan(snap.Cap) {
		return nil, fmt.Errorf("%w: supply %s exceeds cap %s", ErrCorruptSnapshot, snap.Supply, snap.Cap)
	}
	b.supply = snap.Supply

	for _, al := range snap.Allowances {
		if al.Owner.IsZero() || al.Spender.IsZero() {
			return nil, fmt.Errorf("%w: allowance with zero address", ErrCorruptSnapshot)
		}
		if al.Amount.IsZero() {
			continue
		}
		b.setAllowance(al.Owner, al.Spender, al.Amount)
	}

	for _, g := range snap.Grants {
		if !g.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrCorruptSnapshot, g.Role)
		}
		if g.Address.IsZero() {
			return nil, fmt.Errorf("%w: grant with zero address", ErrCorruptSnapshot)
		}
		b.roles[g.Role][g.Address] = struct{}{}
	}
	return b, nil
}
