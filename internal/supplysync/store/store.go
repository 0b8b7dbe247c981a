package store

import (
	"context"
	"errors"

	"github.com/liquidfi/supplysync/internal/supplysync/model"
)

// ErrAlreadyProcessed reports that an insert hit the uniqueness
// constraint: another writer recorded the same logical event first.
// Callers treat it as "processed", not as a failure.
var ErrAlreadyProcessed = errors.New("store: record already processed")

// RecordStore is the persisted idempotency boundary. The uniqueness
// constraint on the dedup key, not the Exists/Insert pair, is what
// actually guarantees exactly-once should two cycles ever overlap.
type RecordStore interface {
	Exists(ctx context.Context, key model.DedupKey) (bool, error)
	Insert(ctx context.Context, rec model.ProcessedRecord) error
}
