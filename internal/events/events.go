package events

import "github.com/bwmarrin/snowflake"

// Payout domain event types published for notifications and analytics.
const (
	EventPayoutScheduled      = "PAYOUT_SCHEDULED"
	EventPayoutReleased       = "PAYOUT_RELEASED"
	EventPayoutFailed         = "PAYOUT_FAILED"
	EventPayoutHeld           = "PAYOUT_HELD"
	EventPayoutCancelled      = "PAYOUT_CANCELLED"
	EventPayoutRetryScheduled = "PAYOUT_RETRY_SCHEDULED"
)

// PayoutPayload is the wire shape every payout event carries.
type PayoutPayload struct {
	BookingID  snowflake.ID `json:"booking_id"`
	PayoutID   snowflake.ID `json:"payout_id,omitempty"`
	ProviderID snowflake.ID `json:"provider_id,omitempty"`
	Amount     float64      `json:"amount"`
	Currency   string       `json:"currency"`
	Reason     string       `json:"reason,omitempty"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p PayoutPayload) ToMap() map[string]any {
	payload := map[string]any{
		"booking_id": p.BookingID.String(),
		"amount":     p.Amount,
		"currency":   p.Currency,
	}
	if p.PayoutID != 0 {
		payload["payout_id"] = p.PayoutID.String()
	}
	if p.ProviderID != 0 {
		payload["provider_id"] = p.ProviderID.String()
	}
	if p.Reason != "" {
		payload["reason"] = p.Reason
	}
	return payload
}
