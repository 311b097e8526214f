// internal/domain/errors.go
package domain

import "errors"

var (
	// ErrInsufficientHistory means too few days of recorded sales to fit a
	// model. Recoverable: the product is skipped this cycle and retried
	// automatically once more data arrives.
	ErrInsufficientHistory = errors.New("insufficient sales history")

	// ErrModelFit means the input series was degenerate or numerically
	// unstable. Same skip policy as ErrInsufficientHistory.
	ErrModelFit = errors.New("model fit failed")

	// ErrStorageUnavailable wraps storage read/write failures. Fatal for
	// the affected product within a batch run, never for the whole run.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNoMatchedAccuracyData is the defined null-accuracy state: zero
	// forecast/actual pairs matched. Surfaced as "insufficient data",
	// never as a crash.
	ErrNoMatchedAccuracyData = errors.New("no matched accuracy data")

	// ErrBatchRunning signals an overlapping pipeline invocation.
	ErrBatchRunning = errors.New("batch pipeline already running")

	// ErrProductNotFound is returned for unknown product identifiers.
	ErrProductNotFound = errors.New("product not found")
)
