// Package errs defines the failure taxonomy shared by the pipeline stages.
// Stages wrap these sentinels with %w so callers can classify failures with
// errors.Is without depending on the package that produced them.
package errs

import "errors"

var (
	// ErrStorageUnavailable means the raw store or the warehouse could not
	// be reached. Never retried at this layer.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrMissingInputFile means a required CSV was absent at ingest time,
	// detected before any store is touched.
	ErrMissingInputFile = errors.New("missing input file")

	// ErrSchemaMismatch means a staged raw dataset is missing a column the
	// load stage requires. Surfaced before any warehouse write.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrDataQuality classifies validation failures; dq.Error unwraps to it.
	ErrDataQuality = errors.New("data quality check failed")

	// ErrConfiguration covers malformed settings and invalid stage
	// selectors. No stage executes after it is raised.
	ErrConfiguration = errors.New("configuration error")
)
