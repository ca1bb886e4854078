package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/DeveloperTWH/crownstandard-backend/internal/cache"
	"go.uber.org/zap"
)

// verificationTTL bounds how stale a positive verification may be. A
// negative result is never cached: the provider may finish onboarding
// between two attempts.
const verificationTTL = 10 * time.Minute

// Executor wraps the processor API with destination verification. It is the
// only component allowed to move real money.
type Executor struct {
	api      API
	log      *zap.Logger
	verified cache.Cache[string, bool]
}

func NewExecutor(api API, log *zap.Logger) *Executor {
	return &Executor{
		api:      api,
		log:      log.Named("transfer.executor"),
		verified: cache.NewTTLCache[string, bool](),
	}
}

// Execute verifies the destination and creates the transfer. Every error is
// transient from the caller's point of view: it records a failed attempt and
// the retry scheduler decides what happens next.
func (e *Executor) Execute(ctx context.Context, req Request) (string, error) {
	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return "", ErrMissingDestination
	}

	ok, cached := e.verified.Get(destination)
	if !cached {
		var err error
		ok, err = e.api.VerifyAccount(ctx, destination)
		if err != nil {
			return "", err
		}
		if ok {
			e.verified.Set(destination, true, verificationTTL)
		}
	}
	if !ok {
		e.log.Warn("destination account not ready for transfers",
			zap.String("payout_id", req.PayoutID),
			zap.String("destination", destination),
		)
		return "", ErrAccountUnverified
	}

	ref, err := e.api.CreateTransfer(ctx, req)
	if err != nil {
		return "", err
	}
	e.log.Info("transfer created",
		zap.String("payout_id", req.PayoutID),
		zap.String("transfer_ref", ref),
		zap.Float64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)
	return ref, nil
}
