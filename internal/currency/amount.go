package currency

import "math"

// Round2 rounds to two decimal places with standard midpoint rounding.
// The epsilon absorbs binary-representation noise (2.675*100 == 267.49999...).
func Round2(amount float64) float64 {
	if amount == 0 {
		return 0
	}
	return math.Round((amount+1e-9)*100) / 100
}

// MinorUnits converts a major-unit amount to the smallest currency unit
// expected by the transfer API.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Clamp floors an amount at zero. Payout math never produces negative money.
func Clamp(amount float64) float64 {
	if amount < 0 {
		return 0
	}
	return amount
}
