package ledger

import (
	"errors"
	"fmt"

	"github.com/govalues/money"
)

// Zero returns a zero amount carrying the currency's scale.
func Zero(curr string) money.Amount {
	z, _ := money.NewAmountFromMinorUnits(curr, 0)
	return z
}

// FromMinor builds an amount from minor units, e.g. 10050 USD -> 100.50.
func FromMinor(curr string, units int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(curr, units)
	return a
}

// ErrOverflow reports a total that does not fit in int64 minor units.
var ErrOverflow = errors.New("amount total overflows")

// AddMinor adds two minor-unit values and fails instead of wrapping.
func AddMinor(a, b int64) (int64, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, ErrOverflow
	}
	return s, nil
}

// ParseAmount parses a decimal string in curr and rejects values carrying more
// precision than the currency's minor unit.
func ParseAmount(curr, s string) (money.Amount, error) {
	a, err := money.ParseAmount(curr, s)
	if err != nil {
		return money.Amount{}, err
	}
	if _, ok := MinorUnits(a); !ok {
		return money.Amount{}, fmt.Errorf("amount %s has more precision than %s allows", s, curr)
	}
	return a, nil
}

// MinorUnits converts a into minor units. ok is false when a cannot be
// represented exactly in the currency's minor unit.
func MinorUnits(a money.Amount) (int64, bool) {
	units, ok := a.MinorUnits()
	if !ok {
		return 0, false
	}
	back, err := money.NewAmountFromMinorUnits(a.Curr().Code(), units)
	if err != nil {
		return 0, false
	}
	diff, err := a.Sub(back)
	if err != nil || !diff.IsZero() {
		return 0, false
	}
	return units, true
}

// FormatAmount renders a as a plain decimal at the currency's scale.
func FormatAmount(a money.Amount) string {
	if units, ok := MinorUnits(a); ok {
		return FromMinor(a.Curr().Code(), units).Decimal().String()
	}
	return a.Decimal().String()
}
