package service

import (
	"context"
	"testing"
	"time"

	"github.com/DeveloperTWH/crownstandard-backend/internal/booking/repository"
	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupBookingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE bookings (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			provider_id BIGINT,
			provider_payout_account TEXT,
			status TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'CAD',
			provider_share REAL NOT NULL DEFAULT 0,
			completed_at TIMESTAMP,
			dispute_status TEXT NOT NULL DEFAULT 'none',
			payout_status TEXT NOT NULL DEFAULT 'not_started',
			payout_eligible_at TIMESTAMP,
			payout_released_at TIMESTAMP,
			payout_hold_reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	).Error; err != nil {
		t.Fatalf("create bookings: %v", err)
	}
	return db
}

func insertBooking(t *testing.T, db *gorm.DB, id int64, status string, payoutStatus string, providerID int64, eligibleAt *time.Time) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO bookings (id, customer_id, provider_id, status, currency, provider_share, completed_at, payout_status, payout_eligible_at)
		 VALUES (?, ?, ?, ?, 'CAD', 100, ?, ?, ?)`,
		id, int64(1), providerID, status, time.Now().UTC().Add(-72*time.Hour), payoutStatus, eligibleAt,
	).Error; err != nil {
		t.Fatalf("insert booking: %v", err)
	}
}

func newTestChecker(db *gorm.DB, at time.Time) *Checker {
	return &Checker{
		db:    db,
		log:   zap.NewNop(),
		clock: clock.FixedClock{At: at},
		repo:  repository.Provide(),
	}
}

func TestEligibleBookingReturned(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	eligibleAt := now.Add(-time.Hour)
	insertBooking(t, db, 100, "completed", "not_started", 7, &eligibleAt)

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(100))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking == nil {
		t.Fatal("expected eligible booking")
	}
	if booking.ProviderID != 7 {
		t.Fatalf("expected provider 7, got %d", booking.ProviderID)
	}
}

func TestNotCompletedIsNotEligible(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	eligibleAt := now.Add(-time.Hour)
	insertBooking(t, db, 101, "in_progress", "not_started", 7, &eligibleAt)

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(101))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking != nil {
		t.Fatal("expected nil for incomplete booking")
	}
}

func TestWindowNotElapsedIsNotEligible(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	eligibleAt := now.Add(12 * time.Hour)
	insertBooking(t, db, 102, "completed", "not_started", 7, &eligibleAt)

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(102))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking != nil {
		t.Fatal("expected nil before eligibility window elapses")
	}
}

func TestMissingEligibilityTimestampIsNotEligible(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	insertBooking(t, db, 103, "completed", "not_started", 7, nil)

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(103))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking != nil {
		t.Fatal("expected nil without an eligibility timestamp")
	}
}

func TestReleasedMirrorIsNotEligible(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	eligibleAt := now.Add(-time.Hour)
	insertBooking(t, db, 104, "completed", "released", 7, &eligibleAt)

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(104))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking != nil {
		t.Fatal("released booking must not be eligible again")
	}
}

func TestFailedMirrorStaysEligibleForRetry(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	eligibleAt := now.Add(-time.Hour)
	insertBooking(t, db, 105, "completed", "failed", 7, &eligibleAt)

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(105))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking == nil {
		t.Fatal("failed mirror is transient and must remain eligible for retry")
	}
}

func TestOpenDisputeIsNotEligible(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	eligibleAt := now.Add(-time.Hour)
	insertBooking(t, db, 107, "completed", "failed", 7, &eligibleAt)
	if err := db.Exec(`UPDATE bookings SET dispute_status = 'open' WHERE id = 107`).Error; err != nil {
		t.Fatalf("update dispute status: %v", err)
	}

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(107))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking != nil {
		t.Fatal("booking with an open dispute must not be eligible")
	}
}

func TestMissingProviderIsNotEligible(t *testing.T) {
	db := setupBookingTestDB(t)
	now := time.Now().UTC()
	eligibleAt := now.Add(-time.Hour)
	insertBooking(t, db, 106, "completed", "not_started", 0, &eligibleAt)

	checker := newTestChecker(db, now)
	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(106))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking != nil {
		t.Fatal("booking without a provider must not be eligible")
	}
}

func TestUnknownBookingIsNotAnError(t *testing.T) {
	db := setupBookingTestDB(t)
	checker := newTestChecker(db, time.Now().UTC())

	booking, err := checker.GetBookingIfEligible(context.Background(), snowflake.ID(999))
	if err != nil {
		t.Fatalf("eligibility check: %v", err)
	}
	if booking != nil {
		t.Fatal("expected nil for unknown booking")
	}
}
