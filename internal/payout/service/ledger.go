package service

import (
	"context"
	"fmt"

	auditdomain "github.com/DeveloperTWH/crownstandard-backend/internal/audit/domain"
	bookingdomain "github.com/DeveloperTWH/crownstandard-backend/internal/booking/domain"
	bookingservice "github.com/DeveloperTWH/crownstandard-backend/internal/booking/service"
	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	"github.com/DeveloperTWH/crownstandard-backend/internal/currency"
	disputedomain "github.com/DeveloperTWH/crownstandard-backend/internal/dispute/domain"
	disputeservice "github.com/DeveloperTWH/crownstandard-backend/internal/dispute/service"
	"github.com/DeveloperTWH/crownstandard-backend/internal/events"
	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outcome is the durable result of one pipeline step for one booking. Every
// outcome except OutcomeRetryable means the work item is finished.
type Outcome string

const (
	OutcomeIneligible Outcome = "ineligible"
	OutcomeScheduled  Outcome = "scheduled"
	OutcomeExisting   Outcome = "existing"
	OutcomeHeld       Outcome = "held"
	OutcomeCancelled  Outcome = "cancelled"
	OutcomeReleased   Outcome = "released"
	OutcomeFailed     Outcome = "failed"
	OutcomeSkipped    Outcome = "skipped"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Cfg         config.Config
	Repo        payoutdomain.Repository
	Bookings    bookingdomain.Repository
	Eligibility *bookingservice.Checker
	Gate        *disputeservice.Gate
	Normalizer  *currency.Normalizer
	Audit       auditdomain.Service
	Outbox      *events.Outbox
}

// Ledger owns every payout state transition. All money-adjacent writes
// (payout row, booking mirror, tip state, audit, outbox) happen inside one
// transaction per transition so a crash can never leave them disagreeing.
type Ledger struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	cfg         config.Config
	repo        payoutdomain.Repository
	bookings    bookingdomain.Repository
	eligibility *bookingservice.Checker
	gate        *disputeservice.Gate
	normalizer  *currency.Normalizer
	audit       auditdomain.Service
	outbox      *events.Outbox
}

func NewLedger(p Params) *Ledger {
	return &Ledger{
		db:          p.DB,
		log:         p.Log.Named("payout.ledger"),
		clock:       p.Clock,
		genID:       p.GenID,
		cfg:         p.Cfg,
		repo:        p.Repo,
		bookings:    p.Bookings,
		eligibility: p.Eligibility,
		gate:        p.Gate,
		normalizer:  p.Normalizer,
		audit:       p.Audit,
		outbox:      p.Outbox,
	}
}

// CreateIfAbsent schedules a payout for a booking unless one already exists.
// Eligibility and the dispute gate are re-checked inside the transaction: the
// queue message that got us here may be hours old.
func (l *Ledger) CreateIfAbsent(ctx context.Context, bookingID snowflake.ID) (*payoutdomain.Payout, Outcome, error) {
	var (
		payout  *payoutdomain.Payout
		outcome Outcome
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payout, outcome, err = l.createIfAbsentTx(ctx, tx, bookingID)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return payout, outcome, nil
}

func (l *Ledger) createIfAbsentTx(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID) (*payoutdomain.Payout, Outcome, error) {
	booking, err := l.eligibility.GetBookingIfEligibleTx(ctx, tx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if booking == nil {
		return nil, OutcomeIneligible, nil
	}

	decision, err := l.gate.CheckTx(ctx, tx, bookingID)
	if err != nil {
		return nil, "", err
	}

	existing, err := l.repo.FindActiveByBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return l.reconcileExisting(ctx, tx, booking, existing, decision)
	}

	switch decision.Verdict {
	case disputedomain.VerdictHold:
		if decision.Permanent {
			if err := l.cancelBookingMirrorTx(ctx, tx, booking, decision.HoldReason); err != nil {
				return nil, "", err
			}
			return nil, OutcomeCancelled, nil
		}
		if err := l.holdBookingMirrorTx(ctx, tx, booking, decision); err != nil {
			return nil, "", err
		}
		return nil, OutcomeHeld, nil
	}

	return l.scheduleTx(ctx, tx, booking, decision)
}

// reconcileExisting applies a dispute decision that arrived after the payout
// was scheduled. The scheduled amount is never recomputed; a later partial
// refund adjusts through the refund pipeline, not here.
func (l *Ledger) reconcileExisting(
	ctx context.Context,
	tx *gorm.DB,
	booking *bookingdomain.Booking,
	existing *payoutdomain.Payout,
	decision disputedomain.Decision,
) (*payoutdomain.Payout, Outcome, error) {
	if existing.Status.Terminal() || decision.Verdict != disputedomain.VerdictHold {
		return existing, OutcomeExisting, nil
	}

	if decision.Permanent {
		if err := l.cancelTx(ctx, tx, booking, existing, decision.HoldReason); err != nil {
			return nil, "", err
		}
		return existing, OutcomeCancelled, nil
	}

	if existing.Status == payoutdomain.StatusOnHold {
		return existing, OutcomeHeld, nil
	}
	if err := l.holdTx(ctx, tx, booking, existing, decision.HoldReason); err != nil {
		return nil, "", err
	}
	return existing, OutcomeHeld, nil
}

func (l *Ledger) scheduleTx(
	ctx context.Context,
	tx *gorm.DB,
	booking *bookingdomain.Booking,
	decision disputedomain.Decision,
) (*payoutdomain.Payout, Outcome, error) {
	paymentTx, err := l.bookings.FindPaymentTransaction(ctx, tx, booking.ID)
	if err != nil {
		return nil, "", err
	}
	if paymentTx == nil || !paymentTx.EligibleForTransfer() {
		l.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:      auditdomain.ActionDataIntegrityError,
			TargetType:  "booking",
			TargetID:    booking.ID.String(),
			Description: "completed booking has no transferable payment transaction",
		})
		return nil, OutcomeIneligible, nil
	}

	tip, err := l.bookings.FindTipTransaction(ctx, tx, booking.ID)
	if err != nil {
		return nil, "", err
	}

	var tipNet float64
	var tipID *snowflake.ID
	if tip.Payable() {
		tipNet, err = l.normalizer.Normalize(ctx, tip.NetAmount(), tip.Currency, booking.Currency)
		if err != nil {
			return nil, "", err
		}
		id := tip.ID
		tipID = &id
	}

	var adjustment float64
	if decision.Verdict == disputedomain.VerdictAdjust {
		adjustment, err = l.normalizer.Normalize(ctx, decision.AdjustAmount, decision.AdjustCurrency, booking.Currency)
		if err != nil {
			return nil, "", err
		}
	}

	breakdown := payoutdomain.ComputeAmount(payoutdomain.AmountInput{
		ProviderShare:  booking.ProviderShare,
		RefundedAmount: paymentTx.RefundedAmount,
		TipNet:         tipNet,
		Adjustment:     adjustment,
	})

	if breakdown.Total <= 0 {
		if err := l.cancelBookingMirrorTx(ctx, tx, booking, "zero_amount"); err != nil {
			return nil, "", err
		}
		return nil, OutcomeCancelled, nil
	}

	payoutType := payoutdomain.TypeBooking
	if breakdown.Base == 0 && breakdown.Tip > 0 {
		payoutType = payoutdomain.TypeTip
	}

	now := l.clock.Now()
	metadata := datatypes.JSONMap{
		"base":       breakdown.Base,
		"tip":        breakdown.Tip,
		"adjustment": breakdown.Adjustment,
	}
	if decision.DisputeID != 0 {
		metadata["dispute_id"] = fmt.Sprintf("%d", decision.DisputeID)
	}

	payout := &payoutdomain.Payout{
		ID:                   l.genID.Generate(),
		ProviderID:           booking.ProviderID,
		BookingID:            booking.ID,
		PaymentTransactionID: paymentTx.ID,
		TipTransactionID:     tipID,
		Amount:               breakdown.Total,
		Currency:             booking.Currency,
		PayoutType:           payoutType,
		Status:               payoutdomain.StatusScheduled,
		IdempotencyKey:       payoutdomain.IdempotencyKey(booking.ID),
		ReleaseDate:          booking.PayoutEligibleAt,
		Metadata:             metadata,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	inserted, err := l.repo.Insert(ctx, tx, payout)
	if err != nil {
		return nil, "", err
	}
	if !inserted {
		// Lost the race: someone scheduled between our lookup and insert.
		existing, err := l.repo.FindActiveByBooking(ctx, tx, booking.ID)
		if err != nil {
			return nil, "", err
		}
		if existing == nil {
			return nil, "", payoutdomain.ErrPayoutNotFound
		}
		return existing, OutcomeExisting, nil
	}

	if err := l.bookings.MarkPayoutStatus(ctx, tx, booking.ID, bookingdomain.PayoutMirrorPending, bookingdomain.PayoutMirrorUpdate{}); err != nil {
		return nil, "", err
	}
	if tipID != nil {
		if err := l.bookings.MarkTipScheduled(ctx, tx, *tipID); err != nil {
			return nil, "", err
		}
	}

	l.audit.RecordTx(ctx, tx, auditdomain.Entry{
		Action:      auditdomain.ActionPayoutScheduled,
		TargetType:  "payout",
		TargetID:    payout.ID.String(),
		Description: "payout scheduled",
		After: map[string]any{
			"booking_id": booking.ID.String(),
			"amount":     payout.Amount,
			"currency":   payout.Currency,
			"type":       string(payout.PayoutType),
		},
		Metadata: map[string]any(metadata),
	})

	if err := l.outbox.PublishTx(ctx, tx, events.Event{
		Type:      events.EventPayoutScheduled,
		BookingID: booking.ID,
		PayoutID:  payout.ID,
		DedupeKey: fmt.Sprintf("payout_scheduled:%s", payout.ID),
		Payload: events.PayoutPayload{
			BookingID:  booking.ID,
			PayoutID:   payout.ID,
			ProviderID: booking.ProviderID,
			Amount:     payout.Amount,
			Currency:   payout.Currency,
		}.ToMap(),
	}); err != nil {
		return nil, "", err
	}

	l.log.Info("payout scheduled",
		zap.String("payout_id", payout.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.Float64("amount", payout.Amount),
		zap.String("currency", payout.Currency),
	)
	return payout, OutcomeScheduled, nil
}

// MarkProcessing claims a payout for transfer execution. A false return
// means another worker got there first; the caller walks away.
func (l *Ledger) MarkProcessing(ctx context.Context, id snowflake.ID) (bool, error) {
	claimed, err := l.repo.MarkProcessing(ctx, l.db, id)
	if err != nil {
		return false, err
	}
	if claimed {
		l.audit.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionPayoutProcessing,
			TargetType: "payout",
			TargetID:   id.String(),
		})
	}
	return claimed, nil
}

// MarkTransferred finalizes a successful transfer. Idempotent: marking an
// already-transferred payout is a no-op, not an error.
func (l *Ledger) MarkTransferred(ctx context.Context, payout *payoutdomain.Payout, transferRef string) error {
	now := l.clock.Now()
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := l.repo.MarkTransferred(ctx, tx, payout.ID, transferRef, now)
		if err != nil {
			return err
		}
		if !moved {
			current, err := l.repo.FindByID(ctx, tx, payout.ID)
			if err != nil {
				return err
			}
			if current != nil && current.Status == payoutdomain.StatusTransferred {
				return nil
			}
			return payoutdomain.ErrInvalidState
		}

		if err := l.bookings.MarkTransactionTransferred(ctx, tx, payout.PaymentTransactionID, transferRef); err != nil {
			return err
		}
		if payout.TipTransactionID != nil {
			if err := l.bookings.MarkTipReleased(ctx, tx, *payout.TipTransactionID, transferRef); err != nil {
				return err
			}
		}
		releasedAt := now
		if err := l.bookings.MarkPayoutStatus(ctx, tx, payout.BookingID, bookingdomain.PayoutMirrorReleased, bookingdomain.PayoutMirrorUpdate{
			ReleasedAt: &releasedAt,
		}); err != nil {
			return err
		}

		l.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:      auditdomain.ActionPayoutReleased,
			TargetType:  "payout",
			TargetID:    payout.ID.String(),
			Description: "transfer completed",
			After: map[string]any{
				"transfer_ref": transferRef,
				"amount":       payout.Amount,
				"currency":     payout.Currency,
			},
		})
		return l.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventPayoutReleased,
			BookingID: payout.BookingID,
			PayoutID:  payout.ID,
			DedupeKey: fmt.Sprintf("payout_released:%s", payout.ID),
			Payload: events.PayoutPayload{
				BookingID:  payout.BookingID,
				PayoutID:   payout.ID,
				ProviderID: payout.ProviderID,
				Amount:     payout.Amount,
				Currency:   payout.Currency,
			}.ToMap(),
		})
	})
}

// MarkFailed records a transfer failure and bumps the attempt counter. The
// booking mirror moves to failed so the retry scan finds it.
func (l *Ledger) MarkFailed(ctx context.Context, payout *payoutdomain.Payout, reason string) error {
	now := l.clock.Now()
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := l.repo.MarkFailed(ctx, tx, payout.ID, reason, now)
		if err != nil {
			return err
		}
		if !moved {
			return payoutdomain.ErrInvalidState
		}
		if err := l.bookings.MarkPayoutStatus(ctx, tx, payout.BookingID, bookingdomain.PayoutMirrorFailed, bookingdomain.PayoutMirrorUpdate{}); err != nil {
			return err
		}

		attempts := payout.Attempts + 1
		l.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:      auditdomain.ActionPayoutFailed,
			TargetType:  "payout",
			TargetID:    payout.ID.String(),
			Description: reason,
			Metadata:    map[string]any{"attempts": attempts},
		})
		return l.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventPayoutFailed,
			BookingID: payout.BookingID,
			PayoutID:  payout.ID,
			DedupeKey: fmt.Sprintf("payout_failed:%s:%d", payout.ID, attempts),
			Payload: events.PayoutPayload{
				BookingID:  payout.BookingID,
				PayoutID:   payout.ID,
				ProviderID: payout.ProviderID,
				Amount:     payout.Amount,
				Currency:   payout.Currency,
				Reason:     reason,
			}.ToMap(),
		})
	})
}

// Hold parks a payout pending operator review.
func (l *Ledger) Hold(ctx context.Context, id snowflake.ID, reason string) error {
	payout, err := l.repo.FindByID(ctx, l.db, id)
	if err != nil {
		return err
	}
	if payout == nil {
		return payoutdomain.ErrPayoutNotFound
	}
	booking, err := l.bookings.FindBooking(ctx, l.db, payout.BookingID)
	if err != nil {
		return err
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.holdTx(ctx, tx, booking, payout, reason)
	})
}

func (l *Ledger) holdTx(ctx context.Context, tx *gorm.DB, booking *bookingdomain.Booking, payout *payoutdomain.Payout, reason string) error {
	moved, err := l.repo.Hold(ctx, tx, payout.ID, reason)
	if err != nil {
		return err
	}
	if !moved {
		return payoutdomain.ErrInvalidState
	}
	if booking != nil {
		if err := l.bookings.MarkPayoutStatus(ctx, tx, booking.ID, bookingdomain.PayoutMirrorOnHold, bookingdomain.PayoutMirrorUpdate{
			HoldReason: &reason,
		}); err != nil {
			return err
		}
	}
	l.audit.RecordTx(ctx, tx, auditdomain.Entry{
		Action:      auditdomain.ActionPayoutHeld,
		TargetType:  "payout",
		TargetID:    payout.ID.String(),
		Description: reason,
	})
	return l.outbox.PublishTx(ctx, tx, events.Event{
		Type:      events.EventPayoutHeld,
		BookingID: payout.BookingID,
		PayoutID:  payout.ID,
		DedupeKey: fmt.Sprintf("payout_held:%s:%s", payout.ID, reason),
		Payload: events.PayoutPayload{
			BookingID:  payout.BookingID,
			PayoutID:   payout.ID,
			ProviderID: payout.ProviderID,
			Amount:     payout.Amount,
			Currency:   payout.Currency,
			Reason:     reason,
		}.ToMap(),
	})
}

// Cancel terminates a payout that never transferred.
func (l *Ledger) Cancel(ctx context.Context, id snowflake.ID, reason string) error {
	payout, err := l.repo.FindByID(ctx, l.db, id)
	if err != nil {
		return err
	}
	if payout == nil {
		return payoutdomain.ErrPayoutNotFound
	}
	booking, err := l.bookings.FindBooking(ctx, l.db, payout.BookingID)
	if err != nil {
		return err
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return l.cancelTx(ctx, tx, booking, payout, reason)
	})
}

func (l *Ledger) cancelTx(ctx context.Context, tx *gorm.DB, booking *bookingdomain.Booking, payout *payoutdomain.Payout, reason string) error {
	moved, err := l.repo.Cancel(ctx, tx, payout.ID, reason)
	if err != nil {
		return err
	}
	if !moved {
		return payoutdomain.ErrInvalidState
	}
	if booking != nil {
		if err := l.bookings.MarkPayoutStatus(ctx, tx, booking.ID, bookingdomain.PayoutMirrorCancelled, bookingdomain.PayoutMirrorUpdate{
			HoldReason: &reason,
		}); err != nil {
			return err
		}
	}
	l.audit.RecordTx(ctx, tx, auditdomain.Entry{
		Action:      auditdomain.ActionPayoutCancelled,
		TargetType:  "payout",
		TargetID:    payout.ID.String(),
		Description: reason,
	})
	return l.outbox.PublishTx(ctx, tx, events.Event{
		Type:      events.EventPayoutCancelled,
		BookingID: payout.BookingID,
		PayoutID:  payout.ID,
		DedupeKey: fmt.Sprintf("payout_cancelled:%s", payout.ID),
		Payload: events.PayoutPayload{
			BookingID:  payout.BookingID,
			PayoutID:   payout.ID,
			ProviderID: payout.ProviderID,
			Amount:     payout.Amount,
			Currency:   payout.Currency,
			Reason:     reason,
		}.ToMap(),
	})
}

// holdBookingMirrorTx records a dispute hold for a booking that has no
// payout row yet. The payout gets created after the dispute clears.
func (l *Ledger) holdBookingMirrorTx(ctx context.Context, tx *gorm.DB, booking *bookingdomain.Booking, decision disputedomain.Decision) error {
	reason := decision.HoldReason
	if err := l.bookings.MarkPayoutStatus(ctx, tx, booking.ID, bookingdomain.PayoutMirrorOnHold, bookingdomain.PayoutMirrorUpdate{
		HoldReason: &reason,
	}); err != nil {
		return err
	}
	l.audit.RecordTx(ctx, tx, auditdomain.Entry{
		Action:      auditdomain.ActionPayoutHeld,
		TargetType:  "booking",
		TargetID:    booking.ID.String(),
		Description: reason,
	})
	return l.outbox.PublishTx(ctx, tx, events.Event{
		Type:      events.EventPayoutHeld,
		BookingID: booking.ID,
		DedupeKey: fmt.Sprintf("payout_held:%s:%s", booking.ID, reason),
		Payload: events.PayoutPayload{
			BookingID:  booking.ID,
			ProviderID: booking.ProviderID,
			Currency:   booking.Currency,
			Reason:     reason,
		}.ToMap(),
	})
}

func (l *Ledger) cancelBookingMirrorTx(ctx context.Context, tx *gorm.DB, booking *bookingdomain.Booking, reason string) error {
	if err := l.bookings.MarkPayoutStatus(ctx, tx, booking.ID, bookingdomain.PayoutMirrorCancelled, bookingdomain.PayoutMirrorUpdate{
		HoldReason: &reason,
	}); err != nil {
		return err
	}
	l.audit.RecordTx(ctx, tx, auditdomain.Entry{
		Action:      auditdomain.ActionPayoutCancelled,
		TargetType:  "booking",
		TargetID:    booking.ID.String(),
		Description: reason,
	})
	return l.outbox.PublishTx(ctx, tx, events.Event{
		Type:      events.EventPayoutCancelled,
		BookingID: booking.ID,
		DedupeKey: fmt.Sprintf("payout_cancelled:%s:%s", booking.ID, reason),
		Payload: events.PayoutPayload{
			BookingID:  booking.ID,
			ProviderID: booking.ProviderID,
			Currency:   booking.Currency,
			Reason:     reason,
		}.ToMap(),
	})
}
