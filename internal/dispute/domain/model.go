package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusCancelled   DisputeStatus = "cancelled"
)

type DisputeOutcome string

const (
	OutcomeRefundFull    DisputeOutcome = "refund_full"
	OutcomeRefundPartial DisputeOutcome = "refund_partial"
	OutcomeNoRefund      DisputeOutcome = "no_refund"
)

// Dispute is a customer complaint against a booking. The payout engine only
// reads these rows; resolution happens in the support tooling.
type Dispute struct {
	ID             snowflake.ID      `gorm:"column:id;primaryKey" json:"id,string"`
	BookingID      snowflake.ID      `gorm:"column:booking_id" json:"booking_id,string"`
	CustomerID     snowflake.ID      `gorm:"column:customer_id" json:"customer_id,string"`
	ProviderID     snowflake.ID      `gorm:"column:provider_id" json:"provider_id,string"`
	Status         DisputeStatus     `gorm:"column:status" json:"status"`
	Reason         string            `gorm:"column:reason" json:"reason,omitempty"`
	Outcome        DisputeOutcome    `gorm:"column:outcome" json:"outcome,omitempty"`
	RefundAmount   float64           `gorm:"column:refund_amount" json:"refund_amount"`
	RefundCurrency string            `gorm:"column:refund_currency" json:"refund_currency,omitempty"`
	DecidedAt      *time.Time        `gorm:"column:decided_at" json:"decided_at,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Dispute) TableName() string { return "disputes" }
