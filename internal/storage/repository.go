package storage

import (
	"context"

	"gitlab.com/fieldion/api/missed-call-router/internal/model"
)

// ProfileRepo defines tradesperson profile lookups against the record store.
type ProfileRepo interface {
	// FindByDestination resolves the inbound destination address to the
	// profile whose registered number matches it. Zero matches is
	// apperrors.ErrNotFound; transport failures are LookupErrors; absent
	// credentials are ConfigurationErrors raised before any query.
	FindByDestination(ctx context.Context, destination string) (*model.TradespersonProfile, error)
}

// LogRepo defines transaction log operations against the record store.
type LogRepo interface {
	// Append writes exactly one log record. It does not deduplicate; the
	// idempotency guard decides whether a write happens at all.
	Append(ctx context.Context, entry model.LogEntry) error

	// ExistsByMessageSID reports whether a log entry for the message
	// identifier already exists. Failures propagate; they are never folded
	// into "not processed".
	ExistsByMessageSID(ctx context.Context, messageSID string) (bool, error)

	// Fields returns the log table's field names and types for the
	// diagnostic introspection endpoint.
	Fields(ctx context.Context) ([]FieldInfo, error)

	// Configured reports whether store credentials are present. The
	// idempotency guard and log writes are skipped when they are not.
	Configured() bool
}

// FieldInfo describes one column of the log table.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
