package completeness

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Series identifies one timeseries held in the store
type Series struct {
	ID   string
	Name string
}

// Store is the read-only view onto the timeseries store the calculator
// queries. Implementations count samples at a given data state ("Raw",
// "Clean", ...) without exposing the underlying storage engine.
type Store interface {
	// BucketCounts returns the number of stored samples of the series in
	// each half-open bucket [fence[i], fence[i+1]), as one grouped query
	BucketCounts(ctx context.Context, seriesID, dataState string, fence []time.Time) ([]int64, error)
	// SampleTimestamps returns the ordered sample timestamps of the series
	// in [start, end), used for interval estimation
	SampleTimestamps(ctx context.Context, seriesID, dataState string, start, end time.Time) ([]time.Time, error)
	// DeclaredInterval returns the sampling interval attached to the series
	// as a property, in seconds, or nil when the series carries none
	DeclaredInterval(ctx context.Context, seriesID string) (*float64, error)
}

// SeriesReport holds the per-series completeness figures over one grid
type SeriesReport struct {
	Name              string
	Count             []int64
	ExpectedCount     []*float64
	Ratio             []*float64
	TotalCount        int64
	AvgCount          float64
	AvgRatio          *float64
	Interval          *float64
	UndefinedInterval bool
}

// Report is a completeness report: the bucket start instants plus one
// SeriesReport per requested series, keyed by series identifier
type Report struct {
	Timestamps []time.Time
	Series     map[string]*SeriesReport
}

// Calculator computes completeness reports from a timeseries store. It is
// stateless; one instance may serve concurrent computations.
type Calculator struct {
	log   logrus.FieldLogger
	store Store
}

// NewCalculator creates a calculator over the given store
func NewCalculator(log logrus.FieldLogger, store Store) *Calculator {
	return &Calculator{
		log:   log.WithField("component", "completeness"),
		store: store,
	}
}

// Compute builds the bucket grid for [start, end) and derives observed,
// expected and ratio figures for every series at the given data state.
// Sparse or empty series are reported with zero counts and nil ratios;
// they never fail the computation. An empty timezone means UTC.
func (c *Calculator) Compute(ctx context.Context, start, end time.Time, series []Series, dataState string, multiplier int, unit Unit, timezone string) (*Report, error) {
	if timezone == "" {
		timezone = "UTC"
	}

	grid, err := NewGrid(start, end, multiplier, unit, timezone)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Timestamps: grid.Starts,
		Series:     make(map[string]*SeriesReport, len(series)),
	}

	for _, ts := range series {
		sr, err := c.computeSeries(ctx, ts, dataState, grid)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", ts.ID, err)
		}

		report.Series[ts.ID] = sr
	}

	return report, nil
}

// ComputePeriod is the period-string call convention: the bucket width is
// given as a single string such as "1 month", and the report is rendered
// keyed by series name with spaced field labels
func (c *Calculator) ComputePeriod(ctx context.Context, start, end time.Time, series []Series, dataState, period, timezone string) (map[string]interface{}, error) {
	multiplier, unit, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	report, err := c.Compute(ctx, start, end, series, dataState, multiplier, unit, timezone)
	if err != nil {
		return nil, err
	}

	return report.ByName(), nil
}

func (c *Calculator) computeSeries(ctx context.Context, ts Series, dataState string, grid *Grid) (*SeriesReport, error) {
	fence := grid.Fence()

	counts, err := c.store.BucketCounts(ctx, ts.ID, dataState, fence)
	if err != nil {
		return nil, fmt.Errorf("failed to count samples: %w", err)
	}

	if len(counts) != len(grid.Starts) {
		return nil, fmt.Errorf("store returned %d bucket counts for %d buckets", len(counts), len(grid.Starts))
	}

	interval, undefined, err := c.seriesInterval(ctx, ts, dataState, fence)
	if err != nil {
		return nil, err
	}

	n := len(counts)
	sr := &SeriesReport{
		Name:              ts.Name,
		Count:             counts,
		ExpectedCount:     make([]*float64, n),
		Ratio:             make([]*float64, n),
		Interval:          interval,
		UndefinedInterval: undefined,
	}

	var (
		ratioSum     float64
		ratioDefined int
	)

	for i, count := range counts {
		sr.TotalCount += count

		if interval == nil {
			continue
		}

		expected := grid.Durations[i] / *interval
		sr.ExpectedCount[i] = &expected

		if expected > 0 {
			ratio := float64(count) / expected
			sr.Ratio[i] = &ratio
			ratioSum += ratio
			ratioDefined++
		}
	}

	sr.AvgCount = float64(sr.TotalCount) / float64(n)

	if ratioDefined > 0 {
		avgRatio := ratioSum / float64(ratioDefined)
		sr.AvgRatio = &avgRatio
	}

	return sr, nil
}

// seriesInterval resolves the sampling interval of a series: the declared
// property value when one exists, otherwise the mean gap between the
// consecutive in-range samples. Fewer than two samples leave the interval
// undefined.
func (c *Calculator) seriesInterval(ctx context.Context, ts Series, dataState string, fence []time.Time) (*float64, bool, error) {
	declared, err := c.store.DeclaredInterval(ctx, ts.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up declared interval: %w", err)
	}

	if declared != nil {
		if *declared > 0 {
			return declared, false, nil
		}

		c.log.WithFields(logrus.Fields{
			"timeseries": ts.ID,
			"interval":   *declared,
		}).Warn("Ignoring non-positive declared interval")
	}

	stamps, err := c.store.SampleTimestamps(ctx, ts.ID, dataState, fence[0], fence[len(fence)-1])
	if err != nil {
		return nil, true, fmt.Errorf("failed to fetch sample timestamps: %w", err)
	}

	if len(stamps) < 2 {
		return nil, true, nil
	}

	var gaps float64
	for i := 1; i < len(stamps); i++ {
		gaps += stamps[i].Sub(stamps[i-1]).Seconds()
	}

	mean := gaps / float64(len(stamps)-1)
	if mean <= 0 {
		// Degenerate data (duplicate timestamps); leave the interval undefined
		return nil, true, nil
	}

	return &mean, true, nil
}
