// Package types provides common types used across Treasury.
package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Arithmetic range errors. Amounts are unsigned and bounded to 256 bits;
// any operation that would leave that range fails instead of wrapping.
var (
	ErrAmountOverflow = errors.New("treasury: amount overflow")
	ErrAmountNegative = errors.New("treasury: negative amount")
	ErrAmountInvalid  = errors.New("treasury: invalid amount")
)

// amountMax is the largest representable Amount, 2^256 - 1.
var amountMax = *new(uint256.Int).SetAllOne()

// tokenScale is the base-unit multiplier for whole tokens (18 decimal places).
var tokenScale = *new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))

// Amount is an unsigned token quantity in base units (wei scale).
// All arithmetic is checked — no wraparound, no negative results.
//
// Examples:
//   - Units(600) = 600 base units
//   - Tokens(5) = 5 whole tokens (5 * 10^18 base units)
//   - MustAmount("1000000000000000000") = 1 whole token
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Amount struct {
	u uint256.Int
}

// Constructors

// Units creates an Amount of v base units.
func Units(v uint64) Amount { return Amount{u: *uint256.NewInt(v)} }

// Tokens creates an Amount of v whole tokens (v * 10^18 base units).
func Tokens(v uint64) Amount {
	var u uint256.Int
	u.Mul(uint256.NewInt(v), &tokenScale)
	return Amount{u: u}
}

// Zero returns the zero Amount. The zero value of Amount is equivalent.
func Zero() Amount { return Amount{} }

// MaxAmount returns the largest representable Amount (2^256 - 1).
// Conventionally used as the unlimited-allowance sentinel.
func MaxAmount() Amount { return Amount{u: amountMax} }

// ParseAmount parses a base-10 string of base units into an Amount.
// Negative values and values above 2^256 - 1 are rejected.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrAmountInvalid)
	}
	if s[0] == '-' {
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountNegative, s)
	}
	u, err := uint256.FromDecimal(s)
	if err != nil {
		if isDecimal(s) {
			return Amount{}, fmt.Errorf("%w: %q", ErrAmountOverflow, s)
		}
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountInvalid, s)
	}
	return Amount{u: *u}, nil
}

// MustAmount is like ParseAmount but panics on error. Use for hardcoded values.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("types: must parse amount %q: %v", s, err))
	}
	return a
}

// AmountFromBig converts a big.Int into an Amount, rejecting negative
// values and values above 2^256 - 1. The input is not retained.
func AmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, fmt.Errorf("%w: nil big.Int", ErrAmountInvalid)
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %s", ErrAmountNegative, v.String())
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return Amount{}, fmt.Errorf("%w: %s", ErrAmountOverflow, v.String())
	}
	return Amount{u: *u}, nil
}

// Arithmetic operations

// Add returns a + other, or ErrAmountOverflow if the result exceeds 2^256 - 1.
func (a Amount) Add(other Amount) (Amount, error) {
	var r uint256.Int
	if _, overflow := r.AddOverflow(&a.u, &other.u); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{u: r}, nil
}

// Sub returns a - other, or ErrAmountNegative if other exceeds a.
func (a Amount) Sub(other Amount) (Amount, error) {
	var r uint256.Int
	if _, underflow := r.SubOverflow(&a.u, &other.u); underflow {
		return Amount{}, ErrAmountNegative
	}
	return Amount{u: r}, nil
}

// Sum adds Amounts with an overflow check on every step of the accumulator.
// Only the loop counter uses plain integer arithmetic; it is bounded by the
// slice length.
func Sum(amounts ...Amount) (Amount, error) {
	var total uint256.Int
	for i := 0; i < len(amounts); i++ {
		if _, overflow := total.AddOverflow(&total, &amounts[i].u); overflow {
			return Amount{}, ErrAmountOverflow
		}
	}
	return Amount{u: total}, nil
}

// Comparison methods

// Cmp compares two Amounts, returning -1, 0 or +1.
func (a Amount) Cmp(other Amount) int { return a.u.Cmp(&other.u) }

// Equal returns true if both Amounts are equal.
func (a Amount) Equal(other Amount) bool { return a.u.Eq(&other.u) }

// IsZero returns true if the Amount is zero.
func (a Amount) IsZero() bool { return a.u.IsZero() }

// IsMax returns true if the Amount is 2^256 - 1, the unlimited-allowance sentinel.
func (a Amount) IsMax() bool { return a.u.Eq(&amountMax) }

// LessThan returns true if a < other.
func (a Amount) LessThan(other Amount) bool { return a.u.Lt(&other.u) }

// GreaterThan returns true if a > other.
func (a Amount) GreaterThan(other Amount) bool { return a.u.Gt(&other.u) }

// Min returns the smaller of two Amounts.
func (a Amount) Min(other Amount) Amount {
	if a.u.Lt(&other.u) {
		return a
	}
	return other
}

// Max returns the larger of two Amounts.
func (a Amount) Max(other Amount) Amount {
	if a.u.Gt(&other.u) {
		return a
	}
	return other
}

// Formatting methods

// String returns the Amount as a base-10 string of base units.
func (a Amount) String() string { return a.u.Dec() }

// FormatTokens returns the Amount in whole tokens with up to 18 decimal
// places, trailing zeros trimmed. Examples: "5", "1.5", "0.000000000000000001".
func (a Amount) FormatTokens() string {
	var whole, frac uint256.Int
	whole.Div(&a.u, &tokenScale)
	frac.Mod(&a.u, &tokenScale)
	if frac.IsZero() {
		return whole.Dec()
	}
	digits := frac.Dec()
	for len(digits) < 18 {
		digits = "0" + digits
	}
	return whole.Dec() + "." + strings.TrimRight(digits, "0")
}

// BigInt returns the Amount as a freshly allocated big.Int.
func (a Amount) BigInt() *big.Int { return a.u.ToBig() }

// Uint64 returns the Amount as a uint64 if it fits.
func (a Amount) Uint64() (uint64, bool) {
	if !a.u.IsUint64() {
		return 0, false
	}
	return a.u.Uint64(), true
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.u.Dec()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Empty input decodes as zero.
func (a *Amount) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Amount{}
		return nil
	}
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer; Amounts are stored as base-10 strings so
// no database integer width can truncate them.
func (a Amount) Value() (driver.Value, error) {
	return a.u.Dec(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: %d", ErrAmountNegative, v)
		}
		*a = Units(uint64(v))
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}

// Helper functions

// isDecimal reports whether s consists only of ASCII digits.
func isDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
