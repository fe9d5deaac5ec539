// Package store provides optional export sinks that persist classification
// rows for later analysis. The CSV artifact is always written; a sink is a
// supplementary destination selected with --export.
package store

import (
	"context"

	"github.com/google/uuid"

	"billing-classify/internal/classify"
)

// Sink persists the classification rows of one run.
type Sink interface {
	// WriteRecords inserts one row per record, stamped with the run id.
	WriteRecords(ctx context.Context, runID uuid.UUID, records []classify.Record) error
	Close() error
}
