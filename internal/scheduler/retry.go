package scheduler

import (
	"context"
	"fmt"
	"time"

	auditdomain "github.com/DeveloperTWH/crownstandard-backend/internal/audit/domain"
	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	"github.com/DeveloperTWH/crownstandard-backend/internal/events"
	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	payoutservice "github.com/DeveloperTWH/crownstandard-backend/internal/payout/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RetryParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	Repo     payoutdomain.Repository
	Ledger   *payoutservice.Ledger
	Pipeline *payoutservice.Pipeline
	Audit    auditdomain.Service
	Outbox   *events.Outbox
}

// RetryScheduler gives failed payouts another chance on a widening backoff,
// cancels the ones that ran out of attempts, and reclaims payouts abandoned
// mid-processing by a dead worker.
type RetryScheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	cfg      config.Config
	repo     payoutdomain.Repository
	ledger   *payoutservice.Ledger
	pipeline *payoutservice.Pipeline
	audit    auditdomain.Service
	outbox   *events.Outbox
}

func NewRetryScheduler(p RetryParams) *RetryScheduler {
	return &RetryScheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler.retry"),
		clock:    p.Clock,
		cfg:      p.Cfg,
		repo:     p.Repo,
		ledger:   p.Ledger,
		pipeline: p.Pipeline,
		audit:    p.Audit,
		outbox:   p.Outbox,
	}
}

func (r *RetryScheduler) RunForever(ctx context.Context) {
	interval := r.cfg.RetryInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("retry scan failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *RetryScheduler) RunOnce(ctx context.Context) error {
	if err := r.reapStuck(ctx); err != nil {
		return err
	}
	if err := r.cancelExhausted(ctx); err != nil {
		return err
	}
	return r.retryDue(ctx)
}

// reapStuck fails processing payouts whose worker died before recording an
// outcome. The transfer may or may not have happened; the reap leaves the
// attempt counter untouched, so the retry re-runs the interrupted attempt
// under the same idempotency key and the processor deduplicates it.
func (r *RetryScheduler) reapStuck(ctx context.Context) error {
	timeout := r.cfg.ProcessingTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	now := r.clock.Now()
	reaped, err := r.repo.ReapStuckProcessing(ctx, r.db, now.Add(-timeout), now)
	if err != nil {
		return err
	}
	for _, p := range reaped {
		r.log.Warn("reaped stuck payout",
			zap.String("payout_id", p.ID.String()),
			zap.String("booking_id", p.BookingID.String()),
		)
		r.audit.Record(ctx, auditdomain.Entry{
			Action:      auditdomain.ActionPayoutFailed,
			TargetType:  "payout",
			TargetID:    p.ID.String(),
			Description: "processing timed out, reclaimed for retry",
		})
	}
	return nil
}

func (r *RetryScheduler) cancelExhausted(ctx context.Context) error {
	maxAttempts := r.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	batch := r.cfg.PayoutBatchSize
	exhausted, err := r.repo.ListFailedExhausted(ctx, r.db, maxAttempts, batch)
	if err != nil {
		return err
	}
	for _, p := range exhausted {
		if err := r.ledger.Cancel(ctx, p.ID, "retries_exhausted"); err != nil {
			r.log.Error("cancel of exhausted payout failed",
				zap.String("payout_id", p.ID.String()),
				zap.Error(err),
			)
			continue
		}
		// Separate entry so the on-call query for manual follow-ups is a
		// single action filter.
		r.audit.Record(ctx, auditdomain.Entry{
			Action:      auditdomain.ActionPayoutRetriesExhausted,
			TargetType:  "payout",
			TargetID:    p.ID.String(),
			Description: "automatic retries exhausted, payout cancelled",
			Metadata: map[string]any{
				"booking_id": p.BookingID.String(),
				"attempts":   p.Attempts,
				"amount":     p.Amount,
				"currency":   p.Currency,
			},
		})
	}
	return nil
}

func (r *RetryScheduler) retryDue(ctx context.Context) error {
	maxAttempts := r.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	batch := r.cfg.PayoutBatchSize
	candidates, err := r.repo.ListFailedForRetry(ctx, r.db, maxAttempts, batch)
	if err != nil {
		return err
	}

	now := r.clock.Now()
	for _, p := range candidates {
		if !RetryDue(p, now) {
			continue
		}

		r.audit.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionPayoutRetryScheduled,
			TargetType: "payout",
			TargetID:   p.ID.String(),
			Metadata:   map[string]any{"attempts": p.Attempts},
		})
		if err := r.outbox.Publish(ctx, events.Event{
			Type:      events.EventPayoutRetryScheduled,
			BookingID: p.BookingID,
			PayoutID:  p.ID,
			DedupeKey: retryDedupeKey(p),
			Payload: events.PayoutPayload{
				BookingID:  p.BookingID,
				PayoutID:   p.ID,
				ProviderID: p.ProviderID,
				Amount:     p.Amount,
				Currency:   p.Currency,
			}.ToMap(),
		}); err != nil {
			r.log.Warn("retry event publish failed", zap.Error(err))
		}

		outcome, err := r.pipeline.RetryPayout(ctx, p.ID)
		if err != nil {
			r.log.Error("retry failed",
				zap.String("payout_id", p.ID.String()),
				zap.Error(err),
			)
			continue
		}
		r.log.Info("retry finished",
			zap.String("payout_id", p.ID.String()),
			zap.String("outcome", string(outcome)),
		)
	}
	return nil
}

func retryDedupeKey(p *payoutdomain.Payout) string {
	return fmt.Sprintf("payout_retry:%s:%d", p.ID, p.Attempts)
}
