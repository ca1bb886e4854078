package service

import (
	"context"

	disputedomain "github.com/DeveloperTWH/crownstandard-backend/internal/dispute/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo disputedomain.Repository
}

// Gate decides whether a booking's payout may proceed given its dispute
// history. The mapping itself lives in domain.Evaluate; the gate only loads
// the latest snapshot.
type Gate struct {
	db   *gorm.DB
	log  *zap.Logger
	repo disputedomain.Repository
}

func NewGate(p Params) *Gate {
	return &Gate{
		db:   p.DB,
		log:  p.Log.Named("dispute.gate"),
		repo: p.Repo,
	}
}

func (g *Gate) Check(ctx context.Context, bookingID snowflake.ID) (disputedomain.Decision, error) {
	return g.CheckTx(ctx, g.db, bookingID)
}

// CheckTx is the transaction-scoped variant used by the payout ledger so the
// gate decision and the payout insert read the same snapshot.
func (g *Gate) CheckTx(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (disputedomain.Decision, error) {
	dispute, err := g.repo.FindLatestByBooking(ctx, db, bookingID)
	if err != nil {
		return disputedomain.Decision{}, err
	}

	decision := disputedomain.Evaluate(dispute)
	if !decision.Pass() {
		g.log.Info("dispute gate blocked payout",
			zap.String("booking_id", bookingID.String()),
			zap.String("verdict", string(decision.Verdict)),
			zap.String("hold_reason", decision.HoldReason),
			zap.Bool("permanent", decision.Permanent),
		)
	}
	return decision, nil
}
