// Package odds computes consensus prices, expected value, value versus the
// field and two-way arbitrage from American sportsbook odds. Everything here
// is pure and safe for concurrent use.
package odds

import "fmt"

// ImpliedProbability converts American odds to the break-even win
// probability. Example: -150 → 0.6, +150 → 0.4.
// The argument is a float because consensus odds are an average of integer
// quotes. It must not be zero.
func ImpliedProbability(odds float64) float64 {
	if odds > 0 {
		return 100 / (odds + 100)
	}
	return -odds / (-odds + 100)
}

// ToDecimal converts American odds to decimal odds (total return per unit
// staked). Example: +150 → 2.5, -150 → 1.6667.
func ToDecimal(odds float64) float64 {
	if odds > 0 {
		return 1 + odds/100
	}
	return 1 + 100/(-odds)
}

// ProfitUnitsPerStake returns net profit per unit staked on a win.
func ProfitUnitsPerStake(odds float64) float64 {
	if odds > 0 {
		return odds / 100
	}
	return 100 / (-odds)
}

// ValidateAmerican rejects prices the conversions above are undefined for.
func ValidateAmerican(price int) error {
	if price == 0 {
		return fmt.Errorf("%w: zero price", ErrMalformedQuote)
	}
	return nil
}
