// Package rawstore is the document staging area for ingested CSV data.
// Collections are replaced wholesale on every ingest run; downstream stages
// read them back as schemaless records.
package rawstore

import "context"

// Record is one staged document. Values keep the types the ingest stage
// assigned (int64 ids and timestamps, float64 ratings, strings).
type Record = map[string]any

const (
	RatingsCollection = "ratings_raw"
	MoviesCollection  = "movies_raw"
)

type Store interface {
	// ReplaceCollection discards everything under name and bulk-inserts
	// records. There is no incremental merge at this layer.
	ReplaceCollection(ctx context.Context, name string, records []Record) error

	// ReadCollection returns all records under name, excluding the store's
	// internal identity field.
	ReadCollection(ctx context.Context, name string) ([]Record, error)

	Close(ctx context.Context) error
}
