package domain

// Verdict is what the gate tells the payout pipeline to do with a booking.
type Verdict string

const (
	// VerdictPass lets the payout proceed untouched.
	VerdictPass Verdict = "pass"
	// VerdictHold blocks the payout. Permanent holds mean the money will
	// never move and the payout should be cancelled instead of parked.
	VerdictHold Verdict = "hold"
	// VerdictAdjust lets the payout proceed with AdjustAmount deducted.
	VerdictAdjust Verdict = "adjust"
)

// Decision is the gate's answer for one booking.
type Decision struct {
	Verdict        Verdict
	HoldReason     string
	Permanent      bool
	AdjustAmount   float64
	AdjustCurrency string
	DisputeID      int64
}

func (d Decision) Pass() bool { return d.Verdict == VerdictPass }

// Evaluate maps a dispute snapshot to a gate decision. Pure; the dispute may
// be nil when the booking was never disputed.
func Evaluate(d *Dispute) Decision {
	if d == nil {
		return Decision{Verdict: VerdictPass}
	}

	switch d.Status {
	case DisputeStatusOpen:
		return Decision{
			Verdict:    VerdictHold,
			HoldReason: "dispute_open",
			DisputeID:  int64(d.ID),
		}
	case DisputeStatusUnderReview:
		return Decision{
			Verdict:    VerdictHold,
			HoldReason: "dispute_under_review",
			DisputeID:  int64(d.ID),
		}
	case DisputeStatusCancelled:
		// A withdrawn dispute has no bearing on the payout.
		return Decision{Verdict: VerdictPass, DisputeID: int64(d.ID)}
	case DisputeStatusResolved:
		return evaluateResolved(d)
	}

	// An unrecognized status is treated like a live dispute: park the money
	// until a human looks at it.
	return Decision{
		Verdict:    VerdictHold,
		HoldReason: "dispute_status_unknown",
		DisputeID:  int64(d.ID),
	}
}

func evaluateResolved(d *Dispute) Decision {
	switch d.Outcome {
	case OutcomeRefundFull:
		return Decision{
			Verdict:    VerdictHold,
			HoldReason: "dispute_refund_full",
			Permanent:  true,
			DisputeID:  int64(d.ID),
		}
	case OutcomeRefundPartial:
		if d.RefundAmount <= 0 {
			return Decision{Verdict: VerdictPass, DisputeID: int64(d.ID)}
		}
		return Decision{
			Verdict:        VerdictAdjust,
			AdjustAmount:   d.RefundAmount,
			AdjustCurrency: d.RefundCurrency,
			DisputeID:      int64(d.ID),
		}
	case OutcomeNoRefund:
		return Decision{Verdict: VerdictPass, DisputeID: int64(d.ID)}
	}

	// Resolved without an outcome is a data error upstream. Same posture as
	// an unknown status.
	return Decision{
		Verdict:    VerdictHold,
		HoldReason: "dispute_outcome_unknown",
		DisputeID:  int64(d.ID),
	}
}
