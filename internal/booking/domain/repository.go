package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PayoutMirrorUpdate carries the optional fields written alongside a mirror
// status change.
type PayoutMirrorUpdate struct {
	ReleasedAt *time.Time
	HoldReason *string
}

// Repository is the narrow surface the payout engine consumes from the
// booking/payment subsystem. Reads are plain lookups; writes exist only so
// mirror fields stay consistent inside ledger transactions.
type Repository interface {
	FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindPaymentTransaction(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*PaymentTransaction, error)
	FindTipTransaction(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*TipTransaction, error)

	// ListEligibleForPayout selects completed, dispute-free bookings whose
	// eligibility window has elapsed and that have no payout yet, oldest
	// completed first, skipping rows locked by a concurrent scan.
	ListEligibleForPayout(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error)

	MarkPayoutStatus(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, status PayoutMirrorStatus, update PayoutMirrorUpdate) error
	MarkTransactionTransferred(ctx context.Context, db *gorm.DB, transactionID snowflake.ID, transferRef string) error
	MarkTipScheduled(ctx context.Context, db *gorm.DB, tipID snowflake.ID) error
	MarkTipReleased(ctx context.Context, db *gorm.DB, tipID snowflake.ID, transferRef string) error
}
