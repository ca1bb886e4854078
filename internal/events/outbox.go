package events

import (
	"context"
	"errors"
	"strings"

	"github.com/DeveloperTWH/crownstandard-backend/internal/clock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Module provides the payout event outbox.
var Module = fx.Module("events.outbox",
	fx.Provide(NewOutbox),
)

// Event describes a payout domain event to store in the outbox.
type Event struct {
	Type      string
	BookingID snowflake.ID
	PayoutID  snowflake.ID
	Payload   map[string]any
	DedupeKey string
}

// Outbox inserts payout events into the payout_events table. Rows are
// drained by an external relay; writing them in the payout transaction is
// what makes event delivery survive process restarts.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) *Outbox {
	return &Outbox{db: db, genID: genID, clock: clk}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.BookingID == 0 {
		return errors.New("invalid_booking_id")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	dedupe := strings.TrimSpace(event.DedupeKey)
	var dedupeValue any
	if dedupe != "" {
		dedupeValue = dedupe
	}
	var payoutValue any
	if event.PayoutID != 0 {
		payoutValue = event.PayoutID
	}

	return db.WithContext(ctx).Exec(
		`INSERT INTO payout_events (id, event_type, booking_id, payout_id, payload, dedupe_key, published, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, false, ?)
		 ON CONFLICT (dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		name,
		event.BookingID,
		payoutValue,
		payload,
		dedupeValue,
		o.clock.Now(),
	).Error
}
