package types

import (
	"encoding/json"
	"errors"
	"testing"
)

// Decimal form of 2^256 - 1, the largest representable Amount.
const maxDec = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		dec    string
	}{
		{"Units", Units(600), "600"},
		{"Units zero", Units(0), "0"},
		{"Tokens", Tokens(5), "5000000000000000000"},
		{"Zero", Zero(), "0"},
		{"Zero value", Amount{}, "0"},
		{"MustAmount", MustAmount("1000000000000000000"), "1000000000000000000"},
		{"MaxAmount", MaxAmount(), maxDec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.amount.String(); got != tt.dec {
				t.Errorf("String: got %s, want %s", got, tt.dec)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"Zero", "0", "0", nil},
		{"Simple", "600", "600", nil},
		{"Large", "123456789012345678901234567890", "123456789012345678901234567890", nil},
		{"Max", maxDec, maxDec, nil},
		{"Empty", "", "", ErrAmountInvalid},
		{"Negative", "-5", "", ErrAmountNegative},
		{"Garbage", "abc", "", ErrAmountInvalid},
		{"Mixed", "12x4", "", ErrAmountInvalid},
		{"Overflow", maxDec[:len(maxDec)-1] + "6", "", ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestMustAmountPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for invalid amount")
		}
	}()

	_ = MustAmount("not a number")
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() (Amount, error)
		expected Amount
	}{
		{"Add", func() (Amount, error) { return Units(100).Add(Units(200)) }, Units(300)},
		{"Add zero", func() (Amount, error) { return Units(100).Add(Zero()) }, Units(100)},
		{"Sub", func() (Amount, error) { return Units(500).Sub(Units(200)) }, Units(300)},
		{"Sub to zero", func() (Amount, error) { return Units(500).Sub(Units(500)) }, Zero()},
		{"Tokens add", func() (Amount, error) { return Tokens(1).Add(Tokens(2)) }, Tokens(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.op()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmountAddOverflow(t *testing.T) {
	_, err := MaxAmount().Add(Units(1))
	if !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("error: got %v, want %v", err, ErrAmountOverflow)
	}
}

func TestAmountSubUnderflow(t *testing.T) {
	_, err := Units(1).Sub(Units(2))
	if !errors.Is(err, ErrAmountNegative) {
		t.Fatalf("error: got %v, want %v", err, ErrAmountNegative)
	}
}

func TestAmountComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Amount
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", Units(100), Units(100), false, false, true},
		{"Less", Units(50), Units(100), true, false, false},
		{"Greater", Units(200), Units(100), false, true, false},
		{"Zero equal", Units(0), Zero(), false, false, true},
		{"Max greater", MaxAmount(), Units(100), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestAmountMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Amount
		min, max Amount
	}{
		{"First smaller", Units(50), Units(100), Units(50), Units(100)},
		{"Second smaller", Units(100), Units(50), Units(50), Units(100)},
		{"Equal", Units(100), Units(100), Units(100), Units(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); !minVal.Equal(tt.min) {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestAmountPredicates(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		isZero bool
		isMax  bool
	}{
		{"Zero", Zero(), true, false},
		{"Positive", Units(100), false, false},
		{"Max", MaxAmount(), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.amount.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.amount.IsMax(); got != tt.isMax {
				t.Errorf("IsMax: got %v, want %v", got, tt.isMax)
			}
		})
	}
}

func TestAmountFormatTokens(t *testing.T) {
	half, err := Tokens(1).Add(MustAmount("500000000000000000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		amount   Amount
		expected string
	}{
		{Tokens(5), "5"},
		{Zero(), "0"},
		{half, "1.5"},
		{Units(1), "0.000000000000000001"},
		{MustAmount("1230000000000000000"), "1.23"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.amount.FormatTokens(); got != tt.expected {
				t.Errorf("FormatTokens: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Amount
		expected Amount
		wantErr  error
	}{
		{"Empty", []Amount{}, Zero(), nil},
		{"Single", []Amount{Units(100)}, Units(100), nil},
		{"Multiple", []Amount{Units(100), Units(200), Units(300)}, Units(600), nil},
		{"All zero", []Amount{Units(0), Units(0), Units(0)}, Units(0), nil},
		{"Overflow", []Amount{MaxAmount(), Units(1)}, Zero(), ErrAmountOverflow},
		{"Overflow mid-sum", []Amount{Units(5), MaxAmount(), Units(5)}, Zero(), ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Sum(tt.values...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmountText(t *testing.T) {
	a := Units(4900)

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `"4900"` {
		t.Errorf("JSON: got %s, want %q", string(data), "4900")
	}

	var back Amount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !back.Equal(a) {
		t.Errorf("Round trip: got %v, want %v", back, a)
	}

	var empty Amount
	if err := empty.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil) error: %v", err)
	}
	if !empty.IsZero() {
		t.Errorf("UnmarshalText(nil): got %v, want zero", empty)
	}
}

func TestAmountScanValue(t *testing.T) {
	v, err := Units(600).Value()
	if err != nil {
		t.Fatalf("Value error: %v", err)
	}
	if v != "600" {
		t.Errorf("Value: got %v, want %q", v, "600")
	}

	tests := []struct {
		name    string
		src     any
		want    Amount
		wantErr bool
	}{
		{"String", "600", Units(600), false},
		{"Bytes", []byte("42"), Units(42), false},
		{"Int64", int64(7), Units(7), false},
		{"Nil", nil, Zero(), false},
		{"Negative int64", int64(-1), Zero(), true},
		{"Float", 1.5, Zero(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := a.Scan(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !a.Equal(tt.want) {
				t.Errorf("Scan: got %v, want %v", a, tt.want)
			}
		})
	}
}

func TestAmountBigInt(t *testing.T) {
	a := Tokens(3)
	b := a.BigInt()
	if b.String() != "3000000000000000000" {
		t.Errorf("BigInt: got %s", b.String())
	}

	back, err := AmountFromBig(b)
	if err != nil {
		t.Fatalf("AmountFromBig error: %v", err)
	}
	if !back.Equal(a) {
		t.Errorf("Round trip: got %v, want %v", back, a)
	}

	b.Neg(b)
	if _, err := AmountFromBig(b); !errors.Is(err, ErrAmountNegative) {
		t.Errorf("negative big.Int: got %v, want %v", err, ErrAmountNegative)
	}
}

func BenchmarkAmountAdd(b *testing.B) {
	a1 := Tokens(100)
	a2 := Tokens(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a1.Add(a2)
	}
}

func BenchmarkAmountSum(b *testing.B) {
	amounts := make([]Amount, 100)
	for i := range amounts {
		amounts[i] = Units(uint64(i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Sum(amounts...)
	}
}

func BenchmarkAmountString(b *testing.B) {
	a := Tokens(4900)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.String()
	}
}
