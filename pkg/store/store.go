// Package store provides the timeseries store backends the completeness
// calculator reads from. A backend answers three questions about a series:
// how many samples fall in each grid bucket, which sample timestamps lie in
// a range, and whether the series declares a sampling interval.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/openbms/tsdq/pkg/completeness"
	"github.com/openbms/tsdq/pkg/observability"
)

// IntervalProperty is the timeseries property holding the declared sampling
// interval, in seconds
const IntervalProperty = "Interval"

// Define static errors
var (
	ErrUnknownBackend    = errors.New("unknown store backend")
	ErrUnknownTimeseries = errors.New("unknown timeseries")
)

// Store extends the calculator's read view with identifier resolution and a
// lifecycle. All implementations are safe for concurrent use once started.
type Store interface {
	completeness.Store

	// ResolveTimeseries maps timeseries identifiers to Series values,
	// failing with ErrUnknownTimeseries when any identifier is absent
	ResolveTimeseries(ctx context.Context, ids []string) ([]completeness.Series, error)
	// Start verifies connectivity to the backend
	Start() error
	// Stop releases backend resources
	Stop() error
}

// fenceEpochs converts fence instants to Unix epoch seconds for use as
// bucket thresholds in backend queries. Sub-second fence precision is
// floored away; both backends store second-granularity sample timestamps,
// so thresholds and samples truncate consistently.
func fenceEpochs(fence []time.Time) []int64 {
	epochs := make([]int64, len(fence))
	for i, t := range fence {
		epochs[i] = t.Unix()
	}

	return epochs
}

// recordQuery records one backend query execution
func recordQuery(backend string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	observability.RecordStoreQuery(backend, status)
}
