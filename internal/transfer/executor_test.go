package transfer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeAPI struct {
	verifyResult bool
	verifyErr    error
	verifyCalls  int

	transferRef   string
	transferErr   error
	transferCalls int
	lastRequest   Request
}

func (f *fakeAPI) CreateTransfer(_ context.Context, req Request) (string, error) {
	f.transferCalls++
	f.lastRequest = req
	if f.transferErr != nil {
		return "", f.transferErr
	}
	return f.transferRef, nil
}

func (f *fakeAPI) VerifyAccount(_ context.Context, _ string) (bool, error) {
	f.verifyCalls++
	return f.verifyResult, f.verifyErr
}

func TestExecuteHappyPath(t *testing.T) {
	api := &fakeAPI{verifyResult: true, transferRef: "tr_123"}
	exec := NewExecutor(api, zap.NewNop())

	ref, err := exec.Execute(context.Background(), Request{
		Amount:         95.00,
		Currency:       "CAD",
		Destination:    "acct_1",
		IdempotencyKey: "payout:42",
		PayoutID:       "9001",
		BookingID:      "42",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if ref != "tr_123" {
		t.Fatalf("expected tr_123, got %q", ref)
	}
	if api.lastRequest.IdempotencyKey != "payout:42" {
		t.Fatalf("idempotency key not forwarded, got %q", api.lastRequest.IdempotencyKey)
	}
}

func TestExecuteMissingDestination(t *testing.T) {
	api := &fakeAPI{verifyResult: true}
	exec := NewExecutor(api, zap.NewNop())

	_, err := exec.Execute(context.Background(), Request{Amount: 10, Currency: "CAD"})
	if !errors.Is(err, ErrMissingDestination) {
		t.Fatalf("expected ErrMissingDestination, got %v", err)
	}
	if api.verifyCalls != 0 || api.transferCalls != 0 {
		t.Fatal("no processor calls expected without a destination")
	}
}

func TestExecuteUnverifiedAccountBlocksTransfer(t *testing.T) {
	api := &fakeAPI{verifyResult: false}
	exec := NewExecutor(api, zap.NewNop())

	_, err := exec.Execute(context.Background(), Request{
		Amount: 10, Currency: "CAD", Destination: "acct_2",
	})
	if !errors.Is(err, ErrAccountUnverified) {
		t.Fatalf("expected ErrAccountUnverified, got %v", err)
	}
	if api.transferCalls != 0 {
		t.Fatal("transfer must not be attempted for an unverified account")
	}
}

func TestExecuteCachesPositiveVerification(t *testing.T) {
	api := &fakeAPI{verifyResult: true, transferRef: "tr_1"}
	exec := NewExecutor(api, zap.NewNop())

	req := Request{Amount: 10, Currency: "CAD", Destination: "acct_3", IdempotencyKey: "k"}
	if _, err := exec.Execute(context.Background(), req); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if _, err := exec.Execute(context.Background(), req); err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if api.verifyCalls != 1 {
		t.Fatalf("expected 1 verification call, got %d", api.verifyCalls)
	}
	if api.transferCalls != 2 {
		t.Fatalf("expected 2 transfer calls, got %d", api.transferCalls)
	}
}

func TestExecuteDoesNotCacheNegativeVerification(t *testing.T) {
	api := &fakeAPI{verifyResult: false}
	exec := NewExecutor(api, zap.NewNop())

	req := Request{Amount: 10, Currency: "CAD", Destination: "acct_4"}
	_, _ = exec.Execute(context.Background(), req)
	_, _ = exec.Execute(context.Background(), req)
	if api.verifyCalls != 2 {
		t.Fatalf("negative verification must be re-checked, got %d calls", api.verifyCalls)
	}
}

func TestExecutePropagatesDecline(t *testing.T) {
	declined := errors.New("transfer_declined")
	api := &fakeAPI{verifyResult: true, transferErr: declined}
	exec := NewExecutor(api, zap.NewNop())

	_, err := exec.Execute(context.Background(), Request{
		Amount: 10, Currency: "CAD", Destination: "acct_5",
	})
	if !errors.Is(err, declined) {
		t.Fatalf("expected decline to surface, got %v", err)
	}
}
