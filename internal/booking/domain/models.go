package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BookingStatus is the lifecycle state owned by the booking service.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// PayoutMirrorStatus mirrors the payout engine's view onto the booking row
// so provider dashboards can read one record.
type PayoutMirrorStatus string

const (
	PayoutMirrorNotStarted PayoutMirrorStatus = "not_started"
	PayoutMirrorPending    PayoutMirrorStatus = "pending"
	PayoutMirrorOnHold     PayoutMirrorStatus = "on_hold"
	PayoutMirrorReleased   PayoutMirrorStatus = "released"
	PayoutMirrorFailed     PayoutMirrorStatus = "failed"
	PayoutMirrorCancelled  PayoutMirrorStatus = "cancelled"
)

// DisputeMirrorStatus is the booking's denormalized dispute flag.
const (
	DisputeMirrorNone     = "none"
	DisputeMirrorOpen     = "open"
	DisputeMirrorResolved = "resolved"
)

// Booking is read-only to the payout engine except for the payout mirror
// fields, which change only inside ledger transactions.
type Booking struct {
	ID                    snowflake.ID       `gorm:"primaryKey"`
	CustomerID            snowflake.ID       `gorm:"not null"`
	ProviderID            snowflake.ID       `gorm:"index"`
	ProviderPayoutAccount string             `gorm:"type:text"`
	Status                BookingStatus      `gorm:"type:text;not null"`
	Currency              string             `gorm:"type:text;not null"`
	ProviderShare         float64            `gorm:"not null"`
	CompletedAt           *time.Time         ``
	DisputeStatus         string             `gorm:"type:text;not null;default:none"`
	PayoutStatus          PayoutMirrorStatus `gorm:"type:text;not null;default:not_started"`
	PayoutEligibleAt      *time.Time         `gorm:"column:payout_eligible_at"`
	PayoutReleasedAt      *time.Time         `gorm:"column:payout_released_at"`
	PayoutHoldReason      string             `gorm:"column:payout_hold_reason;type:text"`
	CreatedAt             time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

// PaymentTransaction statuses. A transfer_status other than not_transferred
// prevents paying out the same charge twice.
const (
	PaymentStatusSucceeded       = "succeeded"
	PaymentStatusPartialRefunded = "partial_refunded"
	PaymentStatusRefunded        = "refunded"
	PaymentStatusFailed          = "failed"

	TransferStatusNotTransferred = "not_transferred"
	TransferStatusTransferred    = "transferred"
)

// PaymentTransaction is the charge backing a booking. One per booking.
type PaymentTransaction struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	BookingID      snowflake.ID `gorm:"not null;index"`
	ProviderID     snowflake.ID ``
	Amount         float64      `gorm:"not null"`
	RefundedAmount float64      `gorm:"not null"`
	Currency       string       `gorm:"type:text;not null"`
	Status         string       `gorm:"type:text;not null"`
	TransferStatus string       `gorm:"type:text;not null;default:not_transferred"`
	TransferRef    *string      `gorm:"type:text"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PaymentTransaction) TableName() string { return "payment_transactions" }

// EligibleForTransfer reports whether this charge can still fund a payout:
// it succeeded, is not fully refunded, and has not already been transferred.
func (t *PaymentTransaction) EligibleForTransfer() bool {
	if t == nil {
		return false
	}
	if t.Status != PaymentStatusSucceeded && t.Status != PaymentStatusPartialRefunded {
		return false
	}
	if t.RefundedAmount >= t.Amount {
		return false
	}
	return t.TransferStatus == TransferStatusNotTransferred
}

// Tip payout statuses.
const (
	TipPayoutNotInitiated = "not_initiated"
	TipPayoutScheduled    = "scheduled"
	TipPayoutReleased     = "released"
	TipPayoutFailed       = "failed"
	TipPayoutCancelled    = "cancelled"
)

// TipTransaction is an optional tip charged separately, possibly in a
// different currency than the booking settlement currency.
type TipTransaction struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	BookingID      snowflake.ID `gorm:"not null;index"`
	ProviderID     snowflake.ID ``
	Amount         float64      `gorm:"not null"`
	RefundedAmount float64      `gorm:"not null"`
	Currency       string       `gorm:"type:text;not null"`
	Status         string       `gorm:"type:text;not null"`
	PayoutStatus   string       `gorm:"type:text;not null;default:not_initiated"`
	TransferRef    *string      `gorm:"type:text"`
	ReleasedAt     *time.Time   ``
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TipTransaction) TableName() string { return "tip_transactions" }

// Payable reports whether the tip should be merged into a payout: it
// succeeded, is not fully refunded, and is not already scheduled or released
// through another payout.
func (t *TipTransaction) Payable() bool {
	if t == nil {
		return false
	}
	if t.Status != PaymentStatusSucceeded && t.Status != PaymentStatusPartialRefunded {
		return false
	}
	if t.RefundedAmount >= t.Amount {
		return false
	}
	return t.PayoutStatus == TipPayoutNotInitiated || t.PayoutStatus == TipPayoutFailed
}

// NetAmount is the tip value remaining after refunds, floored at zero.
func (t *TipTransaction) NetAmount() float64 {
	if t == nil {
		return 0
	}
	net := t.Amount - t.RefundedAmount
	if net < 0 {
		return 0
	}
	return net
}
