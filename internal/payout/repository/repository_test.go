package repository

import (
	"context"
	"testing"
	"time"

	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPayoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmts := []string{
		`CREATE TABLE payouts (
			id BIGINT PRIMARY KEY,
			provider_id BIGINT NOT NULL,
			booking_id BIGINT NOT NULL,
			payment_transaction_id BIGINT NOT NULL,
			tip_transaction_id BIGINT,
			amount REAL NOT NULL,
			currency TEXT NOT NULL,
			payout_type TEXT NOT NULL DEFAULT 'booking',
			status TEXT NOT NULL DEFAULT 'scheduled',
			idempotency_key TEXT NOT NULL,
			release_date TIMESTAMP,
			transferred_at TIMESTAMP,
			transfer_ref TEXT,
			attempts INT NOT NULL DEFAULT 0,
			last_failed_at TIMESTAMP,
			failure_reason TEXT,
			hold_reason TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX ux_payouts_booking_active
			ON payouts (booking_id) WHERE status <> 'cancelled'`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return db
}

func newPayout(id, bookingID int64) *payoutdomain.Payout {
	now := time.Now().UTC()
	return &payoutdomain.Payout{
		ID:                   snowflake.ID(id),
		ProviderID:           7,
		BookingID:            snowflake.ID(bookingID),
		PaymentTransactionID: snowflake.ID(id + 1000),
		Amount:               95.00,
		Currency:             "CAD",
		PayoutType:           payoutdomain.TypeBooking,
		Status:               payoutdomain.StatusScheduled,
		IdempotencyKey:       payoutdomain.IdempotencyKey(snowflake.ID(bookingID)),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestInsertEnforcesOneLivePayoutPerBooking(t *testing.T) {
	db := setupPayoutTestDB(t)
	r := Provide()
	ctx := context.Background()

	inserted, err := r.Insert(ctx, db, newPayout(1, 100))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert must succeed")
	}

	inserted, err = r.Insert(ctx, db, newPayout(2, 100))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("second insert for the same booking must be skipped")
	}

	// A cancelled payout frees the slot.
	if moved, err := r.Cancel(ctx, db, 1, "test"); err != nil || !moved {
		t.Fatalf("cancel: moved=%v err=%v", moved, err)
	}
	inserted, err = r.Insert(ctx, db, newPayout(3, 100))
	if err != nil {
		t.Fatalf("insert after cancel: %v", err)
	}
	if !inserted {
		t.Fatal("insert must succeed once the previous payout is cancelled")
	}
}

func TestTransferredPayoutCannotBeCancelled(t *testing.T) {
	db := setupPayoutTestDB(t)
	r := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := r.Insert(ctx, db, newPayout(1, 101)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if moved, err := r.MarkProcessing(ctx, db, 1); err != nil || !moved {
		t.Fatalf("claim: moved=%v err=%v", moved, err)
	}
	if moved, err := r.MarkTransferred(ctx, db, 1, "tr_1", now); err != nil || !moved {
		t.Fatalf("transfer: moved=%v err=%v", moved, err)
	}

	moved, err := r.Cancel(ctx, db, 1, "test")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if moved {
		t.Fatal("a transferred payout must never cancel")
	}

	// And it cannot transfer twice.
	moved, err = r.MarkTransferred(ctx, db, 1, "tr_2", now)
	if err != nil {
		t.Fatalf("second transfer: %v", err)
	}
	if moved {
		t.Fatal("a payout must transfer at most once")
	}
}

func TestReapStuckProcessing(t *testing.T) {
	db := setupPayoutTestDB(t)
	r := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := r.Insert(ctx, db, newPayout(1, 102)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := r.MarkProcessing(ctx, db, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Backdate the claim so it looks abandoned.
	if err := db.Exec(`UPDATE payouts SET updated_at = ? WHERE id = 1`, now.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	// A fresh claim on another payout must survive the reap.
	if _, err := r.Insert(ctx, db, newPayout(2, 103)); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}
	if _, err := r.MarkProcessing(ctx, db, 2); err != nil {
		t.Fatalf("claim fresh: %v", err)
	}

	reaped, err := r.ReapStuckProcessing(ctx, db, now.Add(-15*time.Minute), now)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if len(reaped) != 1 || int64(reaped[0].ID) != 1 {
		t.Fatalf("expected to reap payout 1 only, got %d rows", len(reaped))
	}

	stale, err := r.FindByID(ctx, db, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stale.Status != payoutdomain.StatusFailed {
		t.Fatalf("expected failed after reap, got %s", stale.Status)
	}
	// The interrupted attempt gets re-run under its original idempotency
	// key, so the reap must not burn an attempt.
	if stale.Attempts != 0 {
		t.Fatalf("reap must not count as an attempt, got %d", stale.Attempts)
	}

	fresh, err := r.FindByID(ctx, db, 2)
	if err != nil {
		t.Fatalf("find fresh: %v", err)
	}
	if fresh.Status != payoutdomain.StatusProcessing {
		t.Fatalf("fresh claim must survive the reap, got %s", fresh.Status)
	}
}

func TestListFailedSplitsByAttemptCap(t *testing.T) {
	db := setupPayoutTestDB(t)
	r := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, bookingID := range []int64{201, 202, 203, 204} {
		p := newPayout(int64(i+1), bookingID)
		if _, err := r.Insert(ctx, db, p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	// attempts: 1, 2, 3, 0(scheduled stays out of both lists)
	if err := db.Exec(`UPDATE payouts SET status='failed', attempts=1, last_failed_at=? WHERE id=1`, now).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(`UPDATE payouts SET status='failed', attempts=2, last_failed_at=? WHERE id=2`, now).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(`UPDATE payouts SET status='failed', attempts=3, last_failed_at=? WHERE id=3`, now).Error; err != nil {
		t.Fatal(err)
	}

	retryable, err := r.ListFailedForRetry(ctx, db, 3, 10)
	if err != nil {
		t.Fatalf("list retryable: %v", err)
	}
	if len(retryable) != 2 {
		t.Fatalf("expected 2 retryable payouts, got %d", len(retryable))
	}

	exhausted, err := r.ListFailedExhausted(ctx, db, 3, 10)
	if err != nil {
		t.Fatalf("list exhausted: %v", err)
	}
	if len(exhausted) != 1 || int64(exhausted[0].ID) != 3 {
		t.Fatalf("expected payout 3 exhausted, got %d rows", len(exhausted))
	}
}
