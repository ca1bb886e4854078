package domain

import "testing"

func TestEvaluateNoDisputePasses(t *testing.T) {
	decision := Evaluate(nil)
	if decision.Verdict != VerdictPass {
		t.Fatalf("expected pass, got %s", decision.Verdict)
	}
}

func TestEvaluateOpenHolds(t *testing.T) {
	decision := Evaluate(&Dispute{ID: 1, Status: DisputeStatusOpen})
	if decision.Verdict != VerdictHold {
		t.Fatalf("expected hold, got %s", decision.Verdict)
	}
	if decision.Permanent {
		t.Fatal("open dispute hold must be transient")
	}
	if decision.HoldReason != "dispute_open" {
		t.Fatalf("unexpected hold reason %q", decision.HoldReason)
	}
}

func TestEvaluateUnderReviewHolds(t *testing.T) {
	decision := Evaluate(&Dispute{ID: 2, Status: DisputeStatusUnderReview})
	if decision.Verdict != VerdictHold {
		t.Fatalf("expected hold, got %s", decision.Verdict)
	}
	if decision.Permanent {
		t.Fatal("under-review hold must be transient")
	}
}

func TestEvaluateCancelledPasses(t *testing.T) {
	decision := Evaluate(&Dispute{ID: 3, Status: DisputeStatusCancelled})
	if decision.Verdict != VerdictPass {
		t.Fatalf("expected pass, got %s", decision.Verdict)
	}
}

func TestEvaluateFullRefundIsPermanentHold(t *testing.T) {
	decision := Evaluate(&Dispute{
		ID:      4,
		Status:  DisputeStatusResolved,
		Outcome: OutcomeRefundFull,
	})
	if decision.Verdict != VerdictHold {
		t.Fatalf("expected hold, got %s", decision.Verdict)
	}
	if !decision.Permanent {
		t.Fatal("full refund hold must be permanent")
	}
	if decision.HoldReason != "dispute_refund_full" {
		t.Fatalf("unexpected hold reason %q", decision.HoldReason)
	}
}

func TestEvaluatePartialRefundAdjusts(t *testing.T) {
	decision := Evaluate(&Dispute{
		ID:             5,
		Status:         DisputeStatusResolved,
		Outcome:        OutcomeRefundPartial,
		RefundAmount:   20,
		RefundCurrency: "CAD",
	})
	if decision.Verdict != VerdictAdjust {
		t.Fatalf("expected adjust, got %s", decision.Verdict)
	}
	if decision.AdjustAmount != 20 {
		t.Fatalf("expected adjustment 20, got %v", decision.AdjustAmount)
	}
	if decision.AdjustCurrency != "CAD" {
		t.Fatalf("expected CAD adjustment, got %q", decision.AdjustCurrency)
	}
}

func TestEvaluateZeroPartialRefundPasses(t *testing.T) {
	decision := Evaluate(&Dispute{
		ID:      6,
		Status:  DisputeStatusResolved,
		Outcome: OutcomeRefundPartial,
	})
	if decision.Verdict != VerdictPass {
		t.Fatalf("expected pass for zero-amount adjustment, got %s", decision.Verdict)
	}
}

func TestEvaluateNoRefundPasses(t *testing.T) {
	decision := Evaluate(&Dispute{
		ID:      7,
		Status:  DisputeStatusResolved,
		Outcome: OutcomeNoRefund,
	})
	if decision.Verdict != VerdictPass {
		t.Fatalf("expected pass, got %s", decision.Verdict)
	}
}

func TestEvaluateUnknownStatusHolds(t *testing.T) {
	decision := Evaluate(&Dispute{ID: 8, Status: DisputeStatus("escalated")})
	if decision.Verdict != VerdictHold {
		t.Fatalf("expected conservative hold, got %s", decision.Verdict)
	}
	if decision.Permanent {
		t.Fatal("unknown status hold must be transient")
	}
}

func TestEvaluateResolvedWithoutOutcomeHolds(t *testing.T) {
	decision := Evaluate(&Dispute{ID: 9, Status: DisputeStatusResolved})
	if decision.Verdict != VerdictHold {
		t.Fatalf("expected hold for missing outcome, got %s", decision.Verdict)
	}
}
