package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindLatestByBooking returns the most recent dispute for a booking, or
	// nil when the booking was never disputed.
	FindLatestByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Dispute, error)
}
