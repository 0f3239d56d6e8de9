// Package ingest loads raw CSV exports into the stores: apartment sale
// records, the daily base-rate series, and quarterly district populations.
package ingest

import "context"

// Ingestor is the interface for all data loading jobs.
type Ingestor interface {
	// Name returns the ingestor identifier.
	Name() string
	// Run loads the source data and persists it. It returns once the
	// source is exhausted or ctx is cancelled.
	Run(ctx context.Context) error
}
