package scheduler

import (
	"context"
	"time"

	bookingdomain "github.com/DeveloperTWH/crownstandard-backend/internal/booking/domain"
	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PollerParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	Bookings bookingdomain.Repository
	Queue    *Queue
}

// Poller periodically scans for bookings whose eligibility window has
// elapsed and feeds them to the queue. It holds no state: a missed tick is
// caught up by the next one, and double-enqueues are absorbed downstream.
type Poller struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	cfg      config.Config
	bookings bookingdomain.Repository
	queue    *Queue
}

func NewPoller(p PollerParams) *Poller {
	return &Poller{
		db:       p.DB,
		log:      p.Log.Named("scheduler.poller"),
		clock:    p.Clock,
		cfg:      p.Cfg,
		bookings: p.Bookings,
		queue:    p.Queue,
	}
}

func (p *Poller) RunForever(ctx context.Context) {
	interval := p.cfg.PollInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := p.RunOnce(ctx); err != nil {
			p.log.Warn("payout poll failed", zap.Error(err))
		} else if n > 0 {
			p.log.Info("payout poll enqueued bookings", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce enqueues one batch of eligible bookings and reports how many were
// newly queued.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	batch := p.cfg.PayoutBatchSize
	if batch <= 0 {
		batch = 50
	}

	ids, err := p.bookings.ListEligibleForPayout(ctx, p.db, p.clock.Now(), batch)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, id := range ids {
		added, err := p.queue.Enqueue(ctx, id)
		if err != nil {
			return queued, err
		}
		if added {
			queued++
		}
	}
	return queued, nil
}
