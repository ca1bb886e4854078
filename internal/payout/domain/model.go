package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PayoutStatus string

const (
	StatusScheduled   PayoutStatus = "scheduled"
	StatusProcessing  PayoutStatus = "processing"
	StatusTransferred PayoutStatus = "transferred"
	StatusOnHold      PayoutStatus = "on_hold"
	StatusFailed      PayoutStatus = "failed"
	StatusCancelled   PayoutStatus = "cancelled"
)

// Terminal reports whether the status can never change again by itself.
// on_hold is sticky but an operator can release it; failed retries.
func (s PayoutStatus) Terminal() bool {
	return s == StatusTransferred || s == StatusCancelled
}

type PayoutType string

const (
	TypeBooking    PayoutType = "booking"
	TypeTip        PayoutType = "tip"
	TypeAdjustment PayoutType = "adjustment"
	TypeRefund     PayoutType = "refund"
)

var (
	ErrPayoutNotFound    = errors.New("payout_not_found")
	ErrInvalidState      = errors.New("invalid_payout_state")
	ErrBookingIneligible = errors.New("booking_not_eligible")
	ErrNothingToPay      = errors.New("nothing_to_pay")
)

// Payout is the ledger row: the single durable record that money moved (or
// is about to move) for a booking. At most one non-cancelled row exists per
// booking, enforced by a partial unique index.
type Payout struct {
	ID                   snowflake.ID      `gorm:"column:id;primaryKey" json:"id,string"`
	ProviderID           snowflake.ID      `gorm:"column:provider_id" json:"provider_id,string"`
	BookingID            snowflake.ID      `gorm:"column:booking_id" json:"booking_id,string"`
	PaymentTransactionID snowflake.ID      `gorm:"column:payment_transaction_id" json:"payment_transaction_id,string"`
	TipTransactionID     *snowflake.ID     `gorm:"column:tip_transaction_id" json:"tip_transaction_id,omitempty"`
	Amount               float64           `gorm:"column:amount" json:"amount"`
	Currency             string            `gorm:"column:currency" json:"currency"`
	PayoutType           PayoutType        `gorm:"column:payout_type" json:"payout_type"`
	Status               PayoutStatus      `gorm:"column:status" json:"status"`
	IdempotencyKey       string            `gorm:"column:idempotency_key" json:"idempotency_key"`
	ReleaseDate          *time.Time        `gorm:"column:release_date" json:"release_date,omitempty"`
	TransferredAt        *time.Time        `gorm:"column:transferred_at" json:"transferred_at,omitempty"`
	TransferRef          *string           `gorm:"column:transfer_ref" json:"transfer_ref,omitempty"`
	Attempts             int               `gorm:"column:attempts" json:"attempts"`
	LastFailedAt         *time.Time        `gorm:"column:last_failed_at" json:"last_failed_at,omitempty"`
	FailureReason        *string           `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	HoldReason           *string           `gorm:"column:hold_reason" json:"hold_reason,omitempty"`
	Metadata             datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt            time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Payout) TableName() string { return "payouts" }

// IdempotencyKey is stable per booking so a re-created payout (after a
// cancel) reuses the same processor-side key space.
func IdempotencyKey(bookingID snowflake.ID) string {
	return fmt.Sprintf("payout:%s", bookingID)
}

// AttemptIdempotencyKey scopes a transfer attempt. Attempt 0 uses the bare
// booking key so the common path stays byte-identical across restarts.
func AttemptIdempotencyKey(bookingID snowflake.ID, attempt int) string {
	if attempt <= 0 {
		return IdempotencyKey(bookingID)
	}
	return fmt.Sprintf("payout:%s:attempt:%d", bookingID, attempt)
}
