package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActorType represents who triggered an action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
	ActorTypeAdmin  ActorType = "admin"
)

// Payout lifecycle actions recorded in the audit trail.
const (
	ActionPayoutScheduled        = "payout.scheduled"
	ActionPayoutProcessing       = "payout.processing"
	ActionPayoutReleased         = "payout.released"
	ActionPayoutFailed           = "payout.failed"
	ActionPayoutHeld             = "payout.held"
	ActionPayoutCancelled        = "payout.cancelled"
	ActionPayoutRetryScheduled   = "payout.retry_scheduled"
	ActionPayoutRetriesExhausted = "payout.retries_exhausted"
	ActionPayoutManualRelease    = "payout.manual_release"
	ActionDataIntegrityError     = "payout.data_integrity_error"
)

// AuditLog is the immutable record of a payout or dispute state transition.
// Rows are never updated or deleted.
type AuditLog struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType   string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID     *string           `gorm:"type:text" json:"actor_id,omitempty"`
	Action      string            `gorm:"type:text;not null;index" json:"action"`
	TargetType  string            `gorm:"type:text;not null" json:"target_type"`
	TargetID    *string           `gorm:"type:text" json:"target_id,omitempty"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	BeforeState datatypes.JSONMap `gorm:"column:before_state;type:jsonb" json:"before_state,omitempty"`
	AfterState  datatypes.JSONMap `gorm:"column:after_state;type:jsonb" json:"after_state,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
