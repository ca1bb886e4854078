package repository

import (
	"context"
	"time"

	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

// Provide builds the gorm-backed payout repository.
func Provide() payoutdomain.Repository {
	return repo{}
}

func (repo) Insert(ctx context.Context, db *gorm.DB, payout *payoutdomain.Payout) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payouts (
			id, provider_id, booking_id, payment_transaction_id, tip_transaction_id,
			amount, currency, payout_type, status, idempotency_key,
			release_date, attempts, metadata, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		 ON CONFLICT (booking_id) WHERE status <> 'cancelled' DO NOTHING`,
		payout.ID,
		payout.ProviderID,
		payout.BookingID,
		payout.PaymentTransactionID,
		payout.TipTransactionID,
		payout.Amount,
		payout.Currency,
		payout.PayoutType,
		payout.Status,
		payout.IdempotencyKey,
		payout.ReleaseDate,
		payout.Metadata,
		payout.CreatedAt,
		payout.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*payoutdomain.Payout, error) {
	var payout payoutdomain.Payout
	err := db.WithContext(ctx).Where("id = ?", id).Take(&payout).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (repo) FindActiveByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*payoutdomain.Payout, error) {
	var payout payoutdomain.Payout
	err := db.WithContext(ctx).
		Where("booking_id = ? AND status <> ?", bookingID, payoutdomain.StatusCancelled).
		Take(&payout).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (repo) List(ctx context.Context, db *gorm.DB, filter payoutdomain.ListFilter) ([]*payoutdomain.Payout, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	q := db.WithContext(ctx).Model(&payoutdomain.Payout{})
	if filter.ProviderID != 0 {
		q = q.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Cursor != 0 {
		q = q.Where("id < ?", filter.Cursor)
	}

	var payouts []*payoutdomain.Payout
	if err := q.Order("id DESC").Limit(limit).Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (repo) MarkProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payouts
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		payoutdomain.StatusProcessing,
		time.Now().UTC(),
		id,
		payoutdomain.StatusScheduled,
		payoutdomain.StatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (repo) MarkTransferred(ctx context.Context, db *gorm.DB, id snowflake.ID, transferRef string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payouts
		 SET status = ?, transfer_ref = ?, transferred_at = ?, failure_reason = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		payoutdomain.StatusTransferred,
		transferRef,
		at,
		at,
		id,
		payoutdomain.StatusProcessing,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payouts
		 SET status = ?, attempts = attempts + 1, last_failed_at = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		payoutdomain.StatusFailed,
		at,
		reason,
		at,
		id,
		payoutdomain.StatusProcessing,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (repo) Hold(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payouts
		 SET status = ?, hold_reason = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		payoutdomain.StatusOnHold,
		reason,
		time.Now().UTC(),
		id,
		payoutdomain.StatusScheduled,
		payoutdomain.StatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (repo) ReleaseHold(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payouts
		 SET status = ?, hold_reason = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		payoutdomain.StatusScheduled,
		time.Now().UTC(),
		id,
		payoutdomain.StatusOnHold,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (repo) Cancel(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payouts
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?, ?)`,
		payoutdomain.StatusCancelled,
		reason,
		time.Now().UTC(),
		id,
		payoutdomain.StatusScheduled,
		payoutdomain.StatusOnHold,
		payoutdomain.StatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (repo) ListFailedForRetry(ctx context.Context, db *gorm.DB, maxAttempts int, limit int) ([]*payoutdomain.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	var payouts []*payoutdomain.Payout
	err := db.WithContext(ctx).
		Where("status = ? AND attempts < ?", payoutdomain.StatusFailed, maxAttempts).
		Order("last_failed_at ASC, id ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (repo) ListFailedExhausted(ctx context.Context, db *gorm.DB, maxAttempts int, limit int) ([]*payoutdomain.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	var payouts []*payoutdomain.Payout
	err := db.WithContext(ctx).
		Where("status = ? AND attempts >= ?", payoutdomain.StatusFailed, maxAttempts).
		Order("last_failed_at ASC, id ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (repo) ReapStuckProcessing(ctx context.Context, db *gorm.DB, cutoff time.Time, at time.Time) ([]*payoutdomain.Payout, error) {
	var reaped []*payoutdomain.Payout
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stuck []*payoutdomain.Payout
		if err := tx.
			Where("status = ? AND updated_at < ?", payoutdomain.StatusProcessing, cutoff).
			Order("updated_at ASC").
			Find(&stuck).Error; err != nil {
			return err
		}
		// attempts stays put: the interrupted attempt is re-run under the
		// same idempotency key, so the processor deduplicates a transfer
		// that was accepted before the crash. Only a recorded transfer
		// failure burns an attempt.
		for _, payout := range stuck {
			res := tx.Exec(
				`UPDATE payouts
				 SET status = ?, last_failed_at = ?, failure_reason = ?, updated_at = ?
				 WHERE id = ? AND status = ?`,
				payoutdomain.StatusFailed,
				at,
				"processing_timeout",
				at,
				payout.ID,
				payoutdomain.StatusProcessing,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				reaped = append(reaped, payout)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reaped, nil
}
