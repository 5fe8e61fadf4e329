package telerelay

import (
	"context"
)

// Store is the durable fallback for payloads that could not be sent. The
// relay appends a record per failed send and replays records strictly in
// insertion order, so OldestPending must always return the earliest record
// still present. Record identifiers are opaque to the relay.
//
// Store failures are escalated to the driver as fatal: if spilled data
// cannot be persisted or read back, continuing would silently lose
// telemetry.
type Store interface {
	// Append persists one payload and returns its record identifier.
	Append(ctx context.Context, data []byte) (string, error)
	// OldestPending returns the earliest record still in the store. The
	// boolean is false when the store is empty, which is not an error.
	OldestPending(ctx context.Context) (id string, data []byte, ok bool, err error)
	// Delete removes a record after it has been delivered.
	Delete(ctx context.Context, id string) error
	// Close releases the store's resources.
	Close() error
}
