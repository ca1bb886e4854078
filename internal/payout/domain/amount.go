package domain

import "github.com/DeveloperTWH/crownstandard-backend/internal/currency"

// AmountInput are the already-normalized figures the calculator works on.
// TipNet must be expressed in the settlement currency before it gets here;
// so must Adjustment (a partial-refund deduction from the dispute gate).
type AmountInput struct {
	ProviderShare  float64
	RefundedAmount float64
	TipNet         float64
	Adjustment     float64
}

// AmountBreakdown records how a payout amount was derived. Stored in payout
// metadata so support can answer "why this number" without replaying code.
type AmountBreakdown struct {
	Base       float64 `json:"base"`
	Tip        float64 `json:"tip"`
	Adjustment float64 `json:"adjustment"`
	Total      float64 `json:"total"`
}

// ComputeAmount derives the transfer amount for a booking. Each component is
// floored at zero before combining, and the total is floored again: refunds
// and adjustments reduce a payout to nothing, never below it.
func ComputeAmount(in AmountInput) AmountBreakdown {
	base := currency.Clamp(currency.Round2(in.ProviderShare - in.RefundedAmount))
	tip := currency.Clamp(currency.Round2(in.TipNet))
	total := currency.Round2(currency.Clamp(base + tip - in.Adjustment))

	return AmountBreakdown{
		Base:       base,
		Tip:        tip,
		Adjustment: currency.Round2(in.Adjustment),
		Total:      total,
	}
}
