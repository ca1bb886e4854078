package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	queuePending    = "payout:queue:pending"
	queueProcessing = "payout:queue:processing"
	queueDedupe     = "payout:queue:ids"
)

// Queue is the redis-backed work queue between the poller and the workers.
// Delivery is at-least-once: a message leaves the processing list only when
// the worker acks a durable outcome, so a crash mid-payout re-delivers and
// the ledger's idempotency absorbs the duplicate.
type Queue struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewQueue(rdb *redis.Client, log *zap.Logger) *Queue {
	return &Queue{rdb: rdb, log: log.Named("scheduler.queue")}
}

// Enqueue adds a booking unless it is already queued. The dedupe set keeps
// overlapping poll runs from flooding the list with the same booking.
func (q *Queue) Enqueue(ctx context.Context, bookingID snowflake.ID) (bool, error) {
	msg := bookingID.String()
	added, err := q.rdb.SAdd(ctx, queueDedupe, msg).Result()
	if err != nil {
		return false, err
	}
	if added == 0 {
		return false, nil
	}
	if err := q.rdb.LPush(ctx, queuePending, msg).Err(); err != nil {
		// Roll the dedupe marker back so a later poll can requeue.
		q.rdb.SRem(ctx, queueDedupe, msg)
		return false, err
	}
	return true, nil
}

// Dequeue blocks up to timeout for the next booking, moving it to the
// processing list. Returns false on an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (snowflake.ID, bool, error) {
	msg, err := q.rdb.BLMove(ctx, queuePending, queueProcessing, "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	id, err := snowflake.ParseString(msg)
	if err != nil {
		// Poisoned message: drop it rather than loop forever.
		q.log.Error("dropping malformed queue message", zap.String("message", msg))
		q.rdb.LRem(ctx, queueProcessing, 1, msg)
		q.rdb.SRem(ctx, queueDedupe, msg)
		return 0, false, nil
	}
	return id, true, nil
}

// Ack removes a finished booking from the processing list and the dedupe
// set, allowing future polls to queue it again.
func (q *Queue) Ack(ctx context.Context, bookingID snowflake.ID) error {
	msg := bookingID.String()
	if err := q.rdb.LRem(ctx, queueProcessing, 1, msg).Err(); err != nil {
		return err
	}
	return q.rdb.SRem(ctx, queueDedupe, msg).Err()
}

// Nack returns a booking to the pending list after an infrastructure
// failure. The dedupe marker stays so concurrent polls cannot double-queue.
func (q *Queue) Nack(ctx context.Context, bookingID snowflake.ID) error {
	msg := bookingID.String()
	if err := q.rdb.LRem(ctx, queueProcessing, 1, msg).Err(); err != nil {
		return err
	}
	return q.rdb.LPush(ctx, queuePending, msg).Err()
}
