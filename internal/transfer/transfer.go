package transfer

import (
	"context"
	"errors"
)

var (
	// ErrAccountUnverified means the destination account cannot receive
	// funds yet. Retryable: providers finish onboarding on their own time.
	ErrAccountUnverified = errors.New("account_unverified")
	// ErrMissingDestination means the booking has no payout account at all.
	ErrMissingDestination = errors.New("missing_destination")
	// ErrTransferDeclined means the processor rejected the transfer.
	ErrTransferDeclined = errors.New("transfer_declined")
)

// Request describes one transfer to a connected account. Amount is in major
// units; the API implementation converts to minor units at the wire.
type Request struct {
	Amount         float64
	Currency       string
	Destination    string
	IdempotencyKey string
	PayoutID       string
	BookingID      string
}

// API is the processor surface the executor drives. The production
// implementation talks to Stripe; tests substitute a recording fake.
type API interface {
	CreateTransfer(ctx context.Context, req Request) (string, error)
	VerifyAccount(ctx context.Context, accountID string) (bool, error)
}
