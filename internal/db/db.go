package db

// Package db persists the tracker state as three independent named records
// in a local SQLite database: the attack list (active attack included with
// a null end time), the trigger vocabulary, and the mitigation vocabulary.
// The core treats storage as a whole-collection load/save; this layer never
// interprets lifecycle semantics.

import (
	"context"

	"github.com/attacklog/attacklog/internal/models"
)

// Record names. Each is one JSON document in the records table.
const (
	RecordAttacks          = "attacks"
	RecordLocationTriggers = "locationTriggers"
	RecordMitigations      = "mitigations"
)

// Store is the persistence interface consumed by the server.
type Store interface {
	// LoadSnapshot reads all three records. A record that is missing or
	// fails to parse yields a nil field in the snapshot (treated as
	// "absent" upstream); only I/O-level failures return an error.
	LoadSnapshot(ctx context.Context) (models.Snapshot, error)

	// SaveSnapshot writes all three records in a single transaction.
	SaveSnapshot(ctx context.Context, snap models.Snapshot) error

	// Close releases database resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}
