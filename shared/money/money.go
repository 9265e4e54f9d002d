package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/eaglebank/ledger/shared/xerrors"
)

// Amount is a monetary value in minor units (cents).
// Example: 10.50 is stored as 1050.
type Amount int64

const (
	Zero Amount = 0
	Max  Amount = math.MaxInt64
)

var maxDecimal = decimal.New(math.MaxInt64, -2)

// FromDecimal rounds d to the nearest cent, halves away from zero.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	rounded := d.Round(2)
	if rounded.Abs().GreaterThan(maxDecimal) {
		return 0, fmt.Errorf("%w: %s is out of range", xerrors.ErrInvalidAmount, d.String())
	}
	return Amount(rounded.Shift(2).IntPart()), nil
}

// FromFloat converts a wire value to cents with the same rounding as FromDecimal.
func FromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not a finite number", xerrors.ErrInvalidAmount, f)
	}
	return FromDecimal(decimal.NewFromFloat(f))
}

// MustParse is for constants and tests.
func MustParse(s string) Amount {
	a, err := FromDecimal(decimal.RequireFromString(s))
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) Float64() float64 {
	return a.Decimal().InexactFloat64()
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Add returns a+b, or ErrBalanceOverflow when the sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > Max-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %s + %s", xerrors.ErrBalanceOverflow, a, b)
	}
	return a + b, nil
}

// Sub returns a-b, or ErrInsufficientFunds when the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: balance %s, requested %s", xerrors.ErrInsufficientFunds, a, b)
	}
	return a - b, nil
}

// Percent returns rate percent of a, rounded once to the nearest cent.
func (a Amount) Percent(rate decimal.Decimal) (Amount, error) {
	return FromDecimal(a.Decimal().Mul(rate).Shift(-2))
}
