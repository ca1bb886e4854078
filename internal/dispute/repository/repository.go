package repository

import (
	"context"

	disputedomain "github.com/DeveloperTWH/crownstandard-backend/internal/dispute/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

// Provide builds the gorm-backed dispute repository.
func Provide() disputedomain.Repository {
	return repo{}
}

func (repo) FindLatestByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*disputedomain.Dispute, error) {
	var dispute disputedomain.Dispute
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC, id DESC").
		Take(&dispute).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &dispute, nil
}
