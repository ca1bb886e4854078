package domain

import "testing"

func TestComputeAmountWithRefundAndTip(t *testing.T) {
	breakdown := ComputeAmount(AmountInput{
		ProviderShare:  100,
		RefundedAmount: 20,
		TipNet:         15,
	})
	if breakdown.Total != 95.00 {
		t.Fatalf("expected 95.00, got %v", breakdown.Total)
	}
	if breakdown.Base != 80.00 {
		t.Fatalf("expected base 80.00, got %v", breakdown.Base)
	}
	if breakdown.Tip != 15.00 {
		t.Fatalf("expected tip 15.00, got %v", breakdown.Tip)
	}
}

func TestComputeAmountOverRefundedFloorsAtZero(t *testing.T) {
	breakdown := ComputeAmount(AmountInput{
		ProviderShare:  50,
		RefundedAmount: 80,
		TipNet:         10,
	})
	if breakdown.Base != 0 {
		t.Fatalf("over-refunded base must floor at zero, got %v", breakdown.Base)
	}
	if breakdown.Total != 10.00 {
		t.Fatalf("expected tip-only total 10.00, got %v", breakdown.Total)
	}
}

func TestComputeAmountAdjustmentNeverGoesNegative(t *testing.T) {
	breakdown := ComputeAmount(AmountInput{
		ProviderShare: 30,
		Adjustment:    45,
	})
	if breakdown.Total != 0 {
		t.Fatalf("adjustment beyond the payout must yield zero, got %v", breakdown.Total)
	}
}

func TestComputeAmountRoundsToCents(t *testing.T) {
	breakdown := ComputeAmount(AmountInput{
		ProviderShare:  33.333,
		RefundedAmount: 0,
		TipNet:         1.005,
	})
	if breakdown.Base != 33.33 {
		t.Fatalf("expected base 33.33, got %v", breakdown.Base)
	}
	if breakdown.Tip != 1.01 {
		t.Fatalf("expected tip 1.01, got %v", breakdown.Tip)
	}
	if breakdown.Total != 34.34 {
		t.Fatalf("expected total 34.34, got %v", breakdown.Total)
	}
}

func TestAttemptIdempotencyKeys(t *testing.T) {
	if got := AttemptIdempotencyKey(42, 0); got != "payout:42" {
		t.Fatalf("attempt 0 must use the bare key, got %q", got)
	}
	if got := AttemptIdempotencyKey(42, 2); got != "payout:42:attempt:2" {
		t.Fatalf("unexpected attempt key %q", got)
	}
}
