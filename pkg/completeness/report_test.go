package completeness_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbms/tsdq/pkg/completeness"
)

func TestReportRenderingConventions(t *testing.T) {
	store, series, start, end := fixture()
	calc := newCalculator(store)

	report, err := calc.Compute(context.Background(), start, end, series, rawState, 1, completeness.UnitMonth, "UTC")
	require.NoError(t, err)

	byID := report.ByID()
	byName := report.ByName()

	// Same top-level shape in both conventions
	for _, rendered := range []map[string]interface{}{byID, byName} {
		require.Contains(t, rendered, "timestamps")
		require.Contains(t, rendered, "timeseries")
	}

	idSeries, ok := byID["timeseries"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, idSeries, "101")

	power, ok := idSeries["101"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Site power", power["name"])
	assert.Contains(t, power, "avg_count")
	assert.Contains(t, power, "avg_ratio")
	assert.Contains(t, power, "expected_count")
	assert.Contains(t, power, "total_count")
	assert.Contains(t, power, "undefined_interval")
	assert.Equal(t, int64(8640), power["total_count"])

	nameSeries, ok := byName["timeseries"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, nameSeries, "Site power")

	powerByName, ok := nameSeries["Site power"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, powerByName, "avg count")
	assert.Contains(t, powerByName, "avg ratio")
	assert.Contains(t, powerByName, "expected count")
	assert.Contains(t, powerByName, "total count")
	assert.Contains(t, powerByName, "undefined interval")
	assert.NotContains(t, powerByName, "name")
}

func TestReportSerializesSparseSeriesAsNulls(t *testing.T) {
	store, series, start, end := fixture()
	calc := newCalculator(store)

	report, err := calc.Compute(context.Background(), start, end, series, rawState, 1, completeness.UnitMonth, "UTC")
	require.NoError(t, err)

	data, err := json.Marshal(report.ByID())
	require.NoError(t, err)

	var decoded struct {
		Timestamps []time.Time `json:"timestamps"`
		Timeseries map[string]struct {
			Count             []int64    `json:"count"`
			ExpectedCount     []*float64 `json:"expected_count"`
			Ratio             []*float64 `json:"ratio"`
			AvgRatio          *float64   `json:"avg_ratio"`
			Interval          *float64   `json:"interval"`
			UndefinedInterval bool       `json:"undefined_interval"`
		} `json:"timeseries"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Timestamps, 2)

	setp := decoded.Timeseries["105"]
	assert.Equal(t, []int64{0, 0}, setp.Count)
	assert.Equal(t, []*float64{nil, nil}, setp.ExpectedCount)
	assert.Equal(t, []*float64{nil, nil}, setp.Ratio)
	assert.Nil(t, setp.AvgRatio)
	assert.Nil(t, setp.Interval)
	assert.True(t, setp.UndefinedInterval)
}

func TestComputePeriod(t *testing.T) {
	store, series, start, end := fixture()
	calc := newCalculator(store)

	rendered, err := calc.ComputePeriod(context.Background(), start, end, series, rawState, "1 month", "UTC")
	require.NoError(t, err)

	nameSeries, ok := rendered["timeseries"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, nameSeries, 5)
	assert.Contains(t, nameSeries, "Zone temperature")
}

func TestComputePeriodInvalid(t *testing.T) {
	store, series, start, end := fixture()
	calc := newCalculator(store)

	_, err := calc.ComputePeriod(context.Background(), start, end, series, rawState, "every tuesday", "UTC")
	require.Error(t, err)
	assert.ErrorIs(t, err, completeness.ErrInvalidPeriod)
}
