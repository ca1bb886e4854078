package service

import (
	"context"

	bookingdomain "github.com/DeveloperTWH/crownstandard-backend/internal/booking/domain"
	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  bookingdomain.Repository
}

// Checker answers "may a payout be created or executed for this booking
// right now". Ineligibility is a value, never an error: cron re-polls the
// same bookings and an absent result simply means "not yet".
type Checker struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  bookingdomain.Repository
}

func NewChecker(p Params) *Checker {
	return &Checker{
		db:    p.DB,
		log:   p.Log.Named("booking.eligibility"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// GetBookingIfEligible returns the booking when every payout precondition
// holds, and (nil, nil) otherwise.
func (c *Checker) GetBookingIfEligible(ctx context.Context, bookingID snowflake.ID) (*bookingdomain.Booking, error) {
	return c.GetBookingIfEligibleTx(ctx, c.db, bookingID)
}

// GetBookingIfEligibleTx is the transaction-scoped variant used by the
// ledger so the decision and the payout insert see the same snapshot.
func (c *Checker) GetBookingIfEligibleTx(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*bookingdomain.Booking, error) {
	booking, err := c.repo.FindBooking(ctx, db, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, nil
	}

	if booking.Status != bookingdomain.BookingStatusCompleted {
		c.log.Debug("booking not completed", zap.String("booking_id", bookingID.String()))
		return nil, nil
	}
	if booking.PayoutEligibleAt == nil {
		c.log.Debug("booking missing eligibility timestamp", zap.String("booking_id", bookingID.String()))
		return nil, nil
	}
	if booking.PayoutEligibleAt.After(c.clock.Now()) {
		return nil, nil
	}

	if booking.DisputeStatus == bookingdomain.DisputeMirrorOpen {
		c.log.Debug("booking has an open dispute", zap.String("booking_id", bookingID.String()))
		return nil, nil
	}

	switch booking.PayoutStatus {
	case bookingdomain.PayoutMirrorReleased, bookingdomain.PayoutMirrorCancelled:
		return nil, nil
	}

	if booking.ProviderID == 0 {
		c.log.Warn("completed booking has no provider", zap.String("booking_id", bookingID.String()))
		return nil, nil
	}

	return booking, nil
}
