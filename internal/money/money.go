// Package money represents spending amounts as exact fixed-point decimals.
//
// Amounts are always held at two fractional digits. They cross the storage
// boundary as integer cents so SQL SUM stays exact, and they cross the HTTP
// boundary as JSON numbers with exactly two decimals (12.50, not 12.5).
package money

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every Amount carries.
const Scale = 2

var (
	// ErrFormat is returned for anything that is not an unsigned decimal with
	// at most two fractional digits.
	ErrFormat = errors.New("money: amount must have up to 2 decimal places")

	// ErrNotPositive is returned for well-formed amounts equal to zero.
	ErrNotPositive = errors.New("money: amount must be greater than 0")

	// ErrTooLarge is returned for well-formed amounts above Max.
	ErrTooLarge = errors.New("money: amount exceeds maximum")

	// ErrOutOfRange is returned by Cents when a value has no int64 cents form.
	ErrOutOfRange = errors.New("money: amount out of storage range")
)

// amountPattern accepts "12", "12.5" and "12.50". It rejects signs, exponents,
// a leading or trailing dot, and a third fractional digit.
var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Amount is a non-negative monetary value normalized to two decimal places.
// The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Amount{d: decimal.Zero}

// MaxCents is the largest accepted amount in cents (999,999,999.99). At
// this bound a single user needs over 92 million maximal transactions
// before an int64 sum of cents overflows.
const MaxCents int64 = 99_999_999_999

// Max is the largest amount Parse accepts.
var Max = FromCents(MaxCents)

// Parse validates raw user input and returns it normalized to two decimal
// places with round-half-up. Surrounding whitespace is ignored.
func Parse(raw string) (Amount, error) {
	raw = strings.TrimSpace(raw)
	if !amountPattern.MatchString(raw) {
		return Amount{}, ErrFormat
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if !d.IsPositive() {
		return Amount{}, ErrNotPositive
	}
	d = d.Round(Scale)
	if d.GreaterThan(Max.d) {
		return Amount{}, ErrTooLarge
	}

	return Amount{d: d}, nil
}

// MustParse is Parse for literals in tests and defaults. It panics on bad input.
func MustParse(raw string) Amount {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents builds an Amount from its storage representation.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -Scale)}
}

// Cents returns the storage representation. It fails with ErrOutOfRange
// rather than truncate or wrap when the value does not fit an int64.
func (a Amount) Cents() (int64, error) {
	c := a.d.Shift(Scale)
	if !c.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimals", ErrOutOfRange, a.d, Scale)
	}
	n := c.BigInt()
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, a.d)
	}
	return n.Int64(), nil
}

// Add returns a+b. Addition of two-place decimals needs no rounding.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Equal reports whether a and b are the same value, regardless of how they
// were constructed.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// String returns the amount with exactly two fractional digits, e.g. "12.50".
func (a Amount) String() string {
	return a.d.StringFixed(Scale)
}

// MarshalJSON writes the amount as a bare JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
// It does not apply the input rules of Parse. Those belong to request
// validation, not to decoding our own responses.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("money: decoding amount %q: %w", data, err)
	}
	a.d = d.Round(Scale)
	return nil
}
