// Package testutil provides in-memory fixtures shared by tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/openbms/tsdq/pkg/completeness"
)

// FakeSeries is the in-memory state backing one timeseries in a FakeStore
type FakeSeries struct {
	Name     string
	Interval *float64
	Samples  map[string][]time.Time
}

// FakeStore is an in-memory timeseries store for tests. Sample timestamps
// must be added in ascending order, mirroring the ordered fetch of the real
// backends.
type FakeStore struct {
	Series map[string]*FakeSeries
	Err    error
}

// NewFakeStore creates an empty fake store
func NewFakeStore() *FakeStore {
	return &FakeStore{Series: make(map[string]*FakeSeries)}
}

// Add registers a series with an optional declared interval and returns it
// for sample population
func (f *FakeStore) Add(id, name string, declared *float64) *FakeSeries {
	fs := &FakeSeries{
		Name:     name,
		Interval: declared,
		Samples:  make(map[string][]time.Time),
	}
	f.Series[id] = fs

	return fs
}

// BucketCounts counts stored samples per half-open fence bucket
func (f *FakeStore) BucketCounts(_ context.Context, seriesID, dataState string, fence []time.Time) ([]int64, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	counts := make([]int64, len(fence)-1)

	fs, ok := f.Series[seriesID]
	if !ok {
		return counts, nil
	}

	for _, ts := range fs.Samples[dataState] {
		for i := 0; i < len(fence)-1; i++ {
			if !ts.Before(fence[i]) && ts.Before(fence[i+1]) {
				counts[i]++
				break
			}
		}
	}

	return counts, nil
}

// SampleTimestamps returns the ordered sample timestamps in [start, end)
func (f *FakeStore) SampleTimestamps(_ context.Context, seriesID, dataState string, start, end time.Time) ([]time.Time, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	fs, ok := f.Series[seriesID]
	if !ok {
		return nil, nil
	}

	var stamps []time.Time
	for _, ts := range fs.Samples[dataState] {
		if !ts.Before(start) && ts.Before(end) {
			stamps = append(stamps, ts)
		}
	}

	return stamps, nil
}

// DeclaredInterval returns the declared interval of the series, if any
func (f *FakeStore) DeclaredInterval(_ context.Context, seriesID string) (*float64, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	fs, ok := f.Series[seriesID]
	if !ok {
		return nil, nil
	}

	return fs.Interval, nil
}

// ResolveTimeseries maps series identifiers to Series values
func (f *FakeStore) ResolveTimeseries(_ context.Context, ids []string) ([]completeness.Series, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	series := make([]completeness.Series, 0, len(ids))
	for _, id := range ids {
		fs, ok := f.Series[id]
		if !ok {
			return nil, fmt.Errorf("unknown timeseries %s", id)
		}

		series = append(series, completeness.Series{ID: id, Name: fs.Name})
	}

	return series, nil
}

// Start implements the store lifecycle; it is a no-op
func (f *FakeStore) Start() error { return nil }

// Stop implements the store lifecycle; it is a no-op
func (f *FakeStore) Stop() error { return nil }

// Regular generates sample timestamps at a fixed step over [start, end)
func Regular(start, end time.Time, step time.Duration) []time.Time {
	var stamps []time.Time
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		stamps = append(stamps, cur)
	}

	return stamps
}

// Float returns a pointer to v, for optional numeric fields
func Float(v float64) *float64 {
	return &v
}
