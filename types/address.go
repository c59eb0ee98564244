package types

// Address identifies an account on a treasury ledger. Addresses are opaque,
// case-sensitive strings chosen by the host environment — key hashes, user
// IDs, service names. The zero value means "no address".
type Address string

// String returns the address as a plain string.
func (a Address) String() string { return string(a) }

// IsZero returns true if the address is empty.
func (a Address) IsZero() bool { return a == "" }
