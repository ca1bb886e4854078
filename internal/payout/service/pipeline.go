package service

import (
	"context"

	disputedomain "github.com/DeveloperTWH/crownstandard-backend/internal/dispute/domain"
	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	"github.com/DeveloperTWH/crownstandard-backend/internal/transfer"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TransferExecutor is the slice of the transfer package the pipeline drives.
type TransferExecutor interface {
	Execute(ctx context.Context, req transfer.Request) (string, error)
}

type PipelineParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Ledger   *Ledger
	Executor TransferExecutor
}

// Pipeline runs a booking end to end: gate, schedule, claim, transfer,
// settle. Workers call it once per queue message; reruns are safe because
// every step is idempotent or guarded.
type Pipeline struct {
	db       *gorm.DB
	log      *zap.Logger
	ledger   *Ledger
	executor TransferExecutor
}

func NewPipeline(p PipelineParams) *Pipeline {
	return &Pipeline{
		db:       p.DB,
		log:      p.Log.Named("payout.pipeline"),
		ledger:   p.Ledger,
		executor: p.Executor,
	}
}

// ProcessBooking is the worker entrypoint. The returned error is reserved
// for infrastructure problems; transfer failures come back as OutcomeFailed
// with the failure already recorded.
func (p *Pipeline) ProcessBooking(ctx context.Context, bookingID snowflake.ID) (Outcome, error) {
	payout, outcome, err := p.ledger.CreateIfAbsent(ctx, bookingID)
	if err != nil {
		return "", err
	}
	switch outcome {
	case OutcomeIneligible, OutcomeHeld, OutcomeCancelled:
		return outcome, nil
	}
	return p.execute(ctx, payout)
}

// RetryPayout re-runs the transfer for a failed payout. The booking is
// re-validated and the dispute gate re-checked first; a booking that became
// ineligible (refunded, cancelled) is skipped without burning an attempt,
// and one disputed after the original attempt is held or cancelled instead
// of transferred.
func (p *Pipeline) RetryPayout(ctx context.Context, payoutID snowflake.ID) (Outcome, error) {
	payout, err := p.ledger.Get(ctx, payoutID)
	if err != nil {
		return "", err
	}
	if payout == nil {
		return "", payoutdomain.ErrPayoutNotFound
	}
	if payout.Status != payoutdomain.StatusFailed && payout.Status != payoutdomain.StatusScheduled {
		return "", payoutdomain.ErrInvalidState
	}

	booking, err := p.ledger.eligibility.GetBookingIfEligible(ctx, payout.BookingID)
	if err != nil {
		return "", err
	}
	if booking == nil {
		p.log.Info("retry skipped, booking no longer eligible",
			zap.String("payout_id", payout.ID.String()),
			zap.String("booking_id", payout.BookingID.String()),
		)
		return OutcomeSkipped, nil
	}

	decision, err := p.ledger.gate.Check(ctx, payout.BookingID)
	if err != nil {
		return "", err
	}
	if decision.Verdict == disputedomain.VerdictHold {
		if decision.Permanent {
			if err := p.ledger.Cancel(ctx, payout.ID, decision.HoldReason); err != nil {
				return "", err
			}
			return OutcomeCancelled, nil
		}
		if err := p.ledger.Hold(ctx, payout.ID, decision.HoldReason); err != nil {
			return "", err
		}
		return OutcomeHeld, nil
	}

	return p.execute(ctx, payout)
}

func (p *Pipeline) execute(ctx context.Context, payout *payoutdomain.Payout) (Outcome, error) {
	if payout == nil {
		return OutcomeSkipped, nil
	}
	switch payout.Status {
	case payoutdomain.StatusTransferred:
		return OutcomeReleased, nil
	case payoutdomain.StatusOnHold:
		return OutcomeHeld, nil
	case payoutdomain.StatusCancelled:
		return OutcomeCancelled, nil
	case payoutdomain.StatusProcessing:
		// Another worker owns it; the reaper handles abandoned claims.
		return OutcomeSkipped, nil
	}

	claimed, err := p.ledger.MarkProcessing(ctx, payout.ID)
	if err != nil {
		return "", err
	}
	if !claimed {
		return OutcomeSkipped, nil
	}

	booking, err := p.ledger.bookings.FindBooking(ctx, p.db, payout.BookingID)
	if err != nil {
		return "", err
	}
	var destination string
	if booking != nil {
		destination = booking.ProviderPayoutAccount
	}

	ref, err := p.executor.Execute(ctx, transfer.Request{
		Amount:         payout.Amount,
		Currency:       payout.Currency,
		Destination:    destination,
		IdempotencyKey: payoutdomain.AttemptIdempotencyKey(payout.BookingID, payout.Attempts),
		PayoutID:       payout.ID.String(),
		BookingID:      payout.BookingID.String(),
	})
	if err != nil {
		if failErr := p.ledger.MarkFailed(ctx, payout, err.Error()); failErr != nil {
			return "", failErr
		}
		return OutcomeFailed, nil
	}

	if err := p.ledger.MarkTransferred(ctx, payout, ref); err != nil {
		return "", err
	}
	return OutcomeReleased, nil
}
