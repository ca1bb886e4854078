package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeveloperTWH/crownstandard-backend/internal/config"
	"github.com/DeveloperTWH/crownstandard-backend/internal/currency"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	stripetransfer "github.com/stripe/stripe-go/v82/transfer"
	"go.uber.org/zap"
)

type stripeAPI struct {
	log *zap.Logger
}

// NewStripeAPI configures the global stripe client and returns the
// processor implementation.
func NewStripeAPI(cfg config.Config, log *zap.Logger) API {
	stripe.Key = cfg.StripeSecretKey
	return &stripeAPI{log: log.Named("transfer.stripe")}
}

func (s *stripeAPI) CreateTransfer(ctx context.Context, req Request) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(currency.MinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.Destination),
		Metadata: map[string]string{
			"payout_id":  req.PayoutID,
			"booking_id": req.BookingID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	t, err := stripetransfer.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			s.log.Warn("stripe declined transfer",
				zap.String("payout_id", req.PayoutID),
				zap.String("code", string(stripeErr.Code)),
			)
			return "", fmt.Errorf("%w: %s", ErrTransferDeclined, stripeErr.Code)
		}
		return "", fmt.Errorf("stripe transfer: %w", err)
	}
	return t.ID, nil
}

// VerifyAccount reports whether a connected account has finished onboarding
// and can receive transfers.
func (s *stripeAPI) VerifyAccount(ctx context.Context, accountID string) (bool, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := account.GetByID(accountID, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			if stripeErr.Code == stripe.ErrorCodeResourceMissing {
				return false, nil
			}
			return false, fmt.Errorf("stripe account lookup: %s: %w", stripeErr.Code, err)
		}
		return false, fmt.Errorf("stripe account lookup: %w", err)
	}
	return acct.DetailsSubmitted && acct.ChargesEnabled && acct.PayoutsEnabled, nil
}
