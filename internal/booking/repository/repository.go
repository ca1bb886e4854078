package repository

import (
	"context"
	"time"

	bookingdomain "github.com/DeveloperTWH/crownstandard-backend/internal/booking/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

// Provide builds the gorm-backed booking repository.
func Provide() bookingdomain.Repository {
	return repo{}
}

func (repo) FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Where("id = ?", id).Take(&booking).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (repo) FindPaymentTransaction(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*bookingdomain.PaymentTransaction, error) {
	var tx bookingdomain.PaymentTransaction
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC, id DESC").
		Take(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (repo) FindTipTransaction(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*bookingdomain.TipTransaction, error) {
	var tip bookingdomain.TipTransaction
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC, id DESC").
		Take(&tip).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tip, nil
}

func (repo) ListEligibleForPayout(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 50
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Raw(
			`SELECT id
			 FROM bookings
			 WHERE status = ?
			   AND payout_status = ?
			   AND dispute_status = ?
			   AND payout_eligible_at IS NOT NULL
			   AND payout_eligible_at <= ?
			   AND provider_id IS NOT NULL
			 ORDER BY completed_at ASC, id ASC
			 LIMIT ?
			 FOR UPDATE SKIP LOCKED`,
			bookingdomain.BookingStatusCompleted,
			bookingdomain.PayoutMirrorNotStarted,
			bookingdomain.DisputeMirrorNone,
			now,
			limit,
		).Scan(&ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (repo) MarkPayoutStatus(
	ctx context.Context,
	db *gorm.DB,
	bookingID snowflake.ID,
	status bookingdomain.PayoutMirrorStatus,
	update bookingdomain.PayoutMirrorUpdate,
) error {
	now := time.Now().UTC()
	values := map[string]any{
		"payout_status": status,
		"updated_at":    now,
	}
	if update.ReleasedAt != nil {
		values["payout_released_at"] = *update.ReleasedAt
	}
	if update.HoldReason != nil {
		values["payout_hold_reason"] = *update.HoldReason
	}
	return db.WithContext(ctx).
		Table("bookings").
		Where("id = ?", bookingID).
		Updates(values).Error
}

func (repo) MarkTransactionTransferred(ctx context.Context, db *gorm.DB, transactionID snowflake.ID, transferRef string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_transactions
		 SET transfer_status = ?, transfer_ref = ?, updated_at = ?
		 WHERE id = ? AND transfer_status = ?`,
		bookingdomain.TransferStatusTransferred,
		transferRef,
		time.Now().UTC(),
		transactionID,
		bookingdomain.TransferStatusNotTransferred,
	).Error
}

func (repo) MarkTipScheduled(ctx context.Context, db *gorm.DB, tipID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tip_transactions
		 SET payout_status = ?, updated_at = ?
		 WHERE id = ? AND payout_status IN (?, ?)`,
		bookingdomain.TipPayoutScheduled,
		time.Now().UTC(),
		tipID,
		bookingdomain.TipPayoutNotInitiated,
		bookingdomain.TipPayoutFailed,
	).Error
}

func (repo) MarkTipReleased(ctx context.Context, db *gorm.DB, tipID snowflake.ID, transferRef string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE tip_transactions
		 SET payout_status = ?, transfer_ref = ?, released_at = ?, updated_at = ?
		 WHERE id = ?`,
		bookingdomain.TipPayoutReleased,
		transferRef,
		now,
		now,
		tipID,
	).Error
}
