package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows the admin payout listing.
type ListFilter struct {
	ProviderID snowflake.ID
	Status     PayoutStatus
	// Cursor is an exclusive upper bound on payout id (descending pages).
	Cursor snowflake.ID
	Limit  int
}

// Repository owns all SQL against the payouts table. Status transitions are
// guarded UPDATEs that report whether the row actually moved, so callers can
// detect lost races instead of double-acting.
type Repository interface {
	// Insert writes a new payout unless a non-cancelled one already exists
	// for the booking. Returns false when the insert was skipped.
	Insert(ctx context.Context, db *gorm.DB, payout *Payout) (bool, error)

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	FindActiveByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Payout, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Payout, error)

	// MarkProcessing moves scheduled|failed → processing.
	MarkProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// MarkTransferred moves processing → transferred and stamps the ref.
	MarkTransferred(ctx context.Context, db *gorm.DB, id snowflake.ID, transferRef string, at time.Time) (bool, error)
	// MarkFailed moves processing → failed, bumping attempts.
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, at time.Time) (bool, error)
	// Hold parks a not-yet-transferred payout.
	Hold(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) (bool, error)
	// ReleaseHold moves on_hold back to scheduled.
	ReleaseHold(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// Cancel terminates a payout that never transferred.
	Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) (bool, error)

	// ListFailedForRetry returns failed payouts with attempts below the cap,
	// oldest failure first.
	ListFailedForRetry(ctx context.Context, db *gorm.DB, maxAttempts int, limit int) ([]*Payout, error)
	// ListFailedExhausted returns failed payouts at or over the attempt cap.
	ListFailedExhausted(ctx context.Context, db *gorm.DB, maxAttempts int, limit int) ([]*Payout, error)
	// ReapStuckProcessing fails processing payouts older than cutoff and
	// returns the affected rows.
	ReapStuckProcessing(ctx context.Context, db *gorm.DB, cutoff time.Time, at time.Time) ([]*Payout, error)
}
