package service

import (
	"context"

	auditdomain "github.com/DeveloperTWH/crownstandard-backend/internal/audit/domain"
	bookingdomain "github.com/DeveloperTWH/crownstandard-backend/internal/booking/domain"
	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Get returns a payout by id, nil when absent.
func (l *Ledger) Get(ctx context.Context, id snowflake.ID) (*payoutdomain.Payout, error) {
	return l.repo.FindByID(ctx, l.db, id)
}

// List pages payouts for the admin surface, newest first.
func (l *Ledger) List(ctx context.Context, filter payoutdomain.ListFilter) ([]*payoutdomain.Payout, error) {
	return l.repo.List(ctx, l.db, filter)
}

// ReleaseHold moves an on-hold payout back to scheduled so the next retry
// scan (or a manual retry) picks it up. Operator action; the actor lands in
// the audit entry via request context.
func (l *Ledger) ReleaseHold(ctx context.Context, id snowflake.ID) error {
	payout, err := l.repo.FindByID(ctx, l.db, id)
	if err != nil {
		return err
	}
	if payout == nil {
		return payoutdomain.ErrPayoutNotFound
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := l.repo.ReleaseHold(ctx, tx, id)
		if err != nil {
			return err
		}
		if !moved {
			return payoutdomain.ErrInvalidState
		}
		if err := l.bookings.MarkPayoutStatus(ctx, tx, payout.BookingID, bookingdomain.PayoutMirrorPending, bookingdomain.PayoutMirrorUpdate{}); err != nil {
			return err
		}
		l.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:      auditdomain.ActionPayoutManualRelease,
			TargetType:  "payout",
			TargetID:    id.String(),
			Description: "hold released by operator",
		})
		return nil
	})
}
