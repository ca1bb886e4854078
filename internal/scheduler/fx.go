package scheduler

import (
	"context"

	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(NewRedisClient),
	fx.Provide(NewQueue),
	fx.Provide(NewPoller),
	fx.Provide(NewWorkerPool),
	fx.Provide(NewRetryScheduler),
	fx.Invoke(run),
)

func NewRedisClient(cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	log.Named("scheduler").Info("redis client configured", zap.String("addr", opts.Addr))
	return client, nil
}

// run starts the poller, the retry scheduler and the worker pool for the
// lifetime of the app. Loops get their own context: the fx OnStart context
// only covers startup.
func run(lc fx.Lifecycle, rdb *redis.Client, poller *Poller, retry *RetryScheduler, workers *WorkerPool) {
	loopCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go poller.RunForever(loopCtx)
			go retry.RunForever(loopCtx)
			workers.Run(loopCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			workers.Wait()
			return rdb.Close()
		},
	})
}
