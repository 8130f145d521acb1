package recharge

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// MinChargeAmount is the smallest amount a checkout accepts.
	MinChargeAmount = decimal.NewFromInt(100)
	// MaxChargeAmount is the largest amount a checkout accepts.
	MaxChargeAmount = decimal.NewFromInt(50000)
)

// ChargeAmount is a monetary quantity in the fixed checkout currency, kept at 2 decimals.
type ChargeAmount struct {
	value decimal.Decimal
}

// NewChargeAmount builds an amount rounded to 2 decimals. Bounds are not checked.
func NewChargeAmount(value decimal.Decimal) ChargeAmount {
	return ChargeAmount{value: value.Round(2)}
}

// ChargeAmountFromInt builds an amount from whole currency units.
func ChargeAmountFromInt(units int64) ChargeAmount {
	return NewChargeAmount(decimal.NewFromInt(units))
}

// ParseDigits keeps only the digits of raw and parses them as whole units.
// ok is false when raw holds no digits.
func ParseDigits(raw string) (ChargeAmount, bool) {
	digits := stripNonDigits(raw)
	if digits == "" {
		return ChargeAmount{}, false
	}
	value, err := decimal.NewFromString(digits)
	if err != nil {
		return ChargeAmount{}, false
	}
	return NewChargeAmount(value), true
}

// Decimal returns the underlying value.
func (a ChargeAmount) Decimal() decimal.Decimal { return a.value }

// Equal compares two amounts by value.
func (a ChargeAmount) Equal(other ChargeAmount) bool { return a.value.Equal(other.value) }

// InRange reports whether MinChargeAmount <= a <= MaxChargeAmount.
func (a ChargeAmount) InRange() bool {
	return a.value.GreaterThanOrEqual(MinChargeAmount) && a.value.LessThanOrEqual(MaxChargeAmount)
}

// String renders the amount with 2 decimals.
func (a ChargeAmount) String() string { return a.value.StringFixed(2) }

// MinorUnits returns the amount in paise.
func (a ChargeAmount) MinorUnits() int64 {
	return a.value.Shift(2).Round(0).IntPart()
}

// Display renders whole amounts without decimals and fractional ones with 2.
func (a ChargeAmount) Display() string {
	if a.value.Equal(a.value.Truncate(0)) {
		return a.value.Truncate(0).String()
	}
	return a.value.StringFixed(2)
}

func stripNonDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
