package domain

import (
	"context"

	"gorm.io/gorm"
)

// Entry describes one audit record to append.
type Entry struct {
	Action      string
	TargetType  string
	TargetID    string
	Description string
	Before      map[string]any
	After       map[string]any
	Metadata    map[string]any
}

// Service appends immutable audit records. Writes never propagate an error
// back to the caller: losing an audit row must not block money movement, so
// failures are logged and swallowed.
type Service interface {
	// Record appends an entry on the default connection.
	Record(ctx context.Context, entry Entry)
	// RecordTx appends an entry inside an existing transaction. The write
	// shares the transaction's fate but a marshalling problem is swallowed.
	RecordTx(ctx context.Context, tx *gorm.DB, entry Entry)
	// List reads recent entries for the admin surface.
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}
