package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	payoutservice "github.com/DeveloperTWH/crownstandard-backend/internal/payout/service"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const dequeueTimeout = 5 * time.Second

type WorkerPoolParams struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Queue    *Queue
	Pipeline *payoutservice.Pipeline
}

// WorkerPool drains the queue with a fixed number of goroutines. Acks are
// deferred until the pipeline returns a durable outcome; infrastructure
// errors nack so another worker (or this one, later) retries the message.
type WorkerPool struct {
	log      *zap.Logger
	cfg      config.Config
	queue    *Queue
	pipeline *payoutservice.Pipeline
	wg       sync.WaitGroup
}

func NewWorkerPool(p WorkerPoolParams) *WorkerPool {
	return &WorkerPool{
		log:      p.Log.Named("scheduler.workers"),
		cfg:      p.Cfg,
		queue:    p.Queue,
		pipeline: p.Pipeline,
	}
}

func (w *WorkerPool) Run(ctx context.Context) {
	count := w.cfg.WorkerCount
	if count <= 0 {
		count = 4
	}
	for i := 0; i < count; i++ {
		w.wg.Add(1)
		go func(n int) {
			defer w.wg.Done()
			w.loop(ctx, n)
		}(i)
	}
}

// Wait blocks until every worker goroutine has exited.
func (w *WorkerPool) Wait() {
	w.wg.Wait()
}

func (w *WorkerPool) loop(ctx context.Context, n int) {
	log := w.log.With(zap.Int("worker", n))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		bookingID, ok, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}

		w.process(ctx, log, bookingID)
	}
}

func (w *WorkerPool) process(ctx context.Context, log *zap.Logger, bookingID snowflake.ID) {
	outcome, err := w.pipeline.ProcessBooking(ctx, bookingID)
	if err != nil {
		// Infrastructure failure: nothing durable was recorded, put the
		// message back.
		log.Error("payout processing failed, requeueing",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
		if nackErr := w.queue.Nack(ctx, bookingID); nackErr != nil {
			log.Error("nack failed", zap.String("booking_id", bookingID.String()), zap.Error(nackErr))
		}
		return
	}

	log.Debug("payout processed",
		zap.String("booking_id", bookingID.String()),
		zap.String("outcome", string(outcome)),
	)
	if ackErr := w.queue.Ack(ctx, bookingID); ackErr != nil {
		// The outcome is durable; a lost ack only means one redundant,
		// idempotent re-run later.
		log.Warn("ack failed", zap.String("booking_id", bookingID.String()), zap.Error(ackErr))
	}
}
