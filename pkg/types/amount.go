package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Amount arithmetic errors.
var (
	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
)

// Amount is a non-negative 256-bit token quantity with checked arithmetic.
// The zero value is zero. Amount is comparable and usable as a map value;
// all operations return a new Amount and never mutate the receiver.
type Amount struct {
	v uint256.Int
}

// NewAmount creates an Amount from a uint64.
func NewAmount(x uint64) Amount {
	var a Amount
	a.v.SetUint64(x)
	return a
}

// MaxAmount returns the largest representable amount. It doubles as the
// "unlimited" sentinel reported for operator-for-all allowances.
func MaxAmount() Amount {
	var a Amount
	a.v.SetAllOne()
	return a
}

// AmountFromString parses a decimal string into an Amount.
func AmountFromString(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{v: *v}, nil
}

// Add returns a+b, or ErrAmountOverflow if the sum does not fit in 256 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var sum Amount
	if _, overflow := sum.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return sum, nil
}

// Sub returns a-b, or ErrAmountUnderflow if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var diff Amount
	if _, underflow := diff.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrAmountUnderflow
	}
	return diff, nil
}

// MulDiv returns a*num/den with full 512-bit intermediate precision,
// rounding down. Division by zero and quotients that do not fit in 256
// bits return ErrAmountOverflow.
func (a Amount) MulDiv(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, ErrAmountOverflow
	}
	var n, d, out uint256.Int
	n.SetUint64(num)
	d.SetUint64(den)
	if _, overflow := out.MulDivOverflow(&a.v, &n, &d); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{v: out}, nil
}

// Cmp returns -1, 0, or +1 depending on whether a is less than, equal to,
// or greater than b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Uint64 returns the amount as a uint64, truncating the high words.
func (a Amount) Uint64() uint64 {
	return a.v.Uint64()
}

// String returns the decimal representation.
func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a decimal string (or bare JSON number) into an amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Tolerate unquoted numbers from hand-written requests.
		s = string(data)
	}
	if s == "" {
		*a = Amount{}
		return nil
	}
	parsed, err := AmountFromString(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
