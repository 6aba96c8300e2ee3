package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openbms/tsdq/pkg/clickhouse"
	"github.com/openbms/tsdq/pkg/completeness"
)

// clickhouseStore reads timeseries data over the ClickHouse HTTP interface.
// It expects the timeseries, timeseries_data and timeseries_property tables.
type clickhouseStore struct {
	log    logrus.FieldLogger
	client clickhouse.ClientInterface
}

// NewClickHouseStore creates a ClickHouse-backed timeseries store
func NewClickHouseStore(log logrus.FieldLogger, client clickhouse.ClientInterface) Store {
	return &clickhouseStore{
		log:    log.WithField("component", "store/clickhouse"),
		client: client,
	}
}

func (s *clickhouseStore) Start() error {
	return s.client.Start()
}

func (s *clickhouseStore) Stop() error {
	return s.client.Stop()
}

// BucketCounts groups samples into fence buckets in a single query. The
// bucket index of a sample is the number of bucket starts at or before its
// timestamp, minus one.
func (s *clickhouseStore) BucketCounts(ctx context.Context, seriesID, dataState string, fence []time.Time) ([]int64, error) {
	epochs := fenceEpochs(fence)
	starts := epochs[:len(epochs)-1]

	thresholds := make([]string, len(starts))
	for i, e := range starts {
		thresholds[i] = fmt.Sprintf("%d", e)
	}

	query := fmt.Sprintf(`
		SELECT
			toInt32(arrayCount(x -> x <= toUnixTimestamp(timestamp), [%s]) - 1) AS bucket,
			toInt64(count()) AS samples
		FROM timeseries_data
		WHERE timeseries_id = '%s'
			AND data_state = '%s'
			AND timestamp >= toDateTime(%d)
			AND timestamp < toDateTime(%d)
		GROUP BY bucket
		ORDER BY bucket`,
		strings.Join(thresholds, ","),
		quote(seriesID), quote(dataState),
		epochs[0], epochs[len(epochs)-1])

	var rows []struct {
		Bucket  int   `json:"bucket"`
		Samples int64 `json:"samples"`
	}

	err := s.client.QueryMany(ctx, query, &rows)
	recordQuery(BackendClickHouse, err)

	if err != nil {
		return nil, fmt.Errorf("failed to query bucket counts: %w", err)
	}

	counts := make([]int64, len(starts))

	for _, row := range rows {
		if row.Bucket < 0 || row.Bucket >= len(counts) {
			return nil, fmt.Errorf("bucket index %d out of range for %d buckets", row.Bucket, len(counts))
		}

		counts[row.Bucket] = row.Samples
	}

	return counts, nil
}

// SampleTimestamps returns the ordered sample timestamps in [start, end)
func (s *clickhouseStore) SampleTimestamps(ctx context.Context, seriesID, dataState string, start, end time.Time) ([]time.Time, error) {
	query := fmt.Sprintf(`
		SELECT toUnixTimestamp(timestamp) AS ts
		FROM timeseries_data
		WHERE timeseries_id = '%s'
			AND data_state = '%s'
			AND timestamp >= toDateTime(%d)
			AND timestamp < toDateTime(%d)
		ORDER BY timestamp`,
		quote(seriesID), quote(dataState), start.Unix(), end.Unix())

	var rows []struct {
		TS int64 `json:"ts"`
	}

	err := s.client.QueryMany(ctx, query, &rows)
	recordQuery(BackendClickHouse, err)

	if err != nil {
		return nil, fmt.Errorf("failed to query sample timestamps: %w", err)
	}

	stamps := make([]time.Time, len(rows))
	for i, row := range rows {
		stamps[i] = time.Unix(row.TS, 0).UTC()
	}

	return stamps, nil
}

// DeclaredInterval looks up the sampling interval property of the series
func (s *clickhouseStore) DeclaredInterval(ctx context.Context, seriesID string) (*float64, error) {
	query := fmt.Sprintf(`
		SELECT toFloat64(value) AS value
		FROM timeseries_property
		WHERE timeseries_id = '%s'
			AND name = '%s'
		LIMIT 1`,
		quote(seriesID), IntervalProperty)

	// QueryMany rather than QueryOne so a missing property row is
	// distinguishable from a zero value
	var rows []struct {
		Value float64 `json:"value"`
	}

	err := s.client.QueryMany(ctx, query, &rows)
	recordQuery(BackendClickHouse, err)

	if err != nil {
		return nil, fmt.Errorf("failed to query declared interval: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return &rows[0].Value, nil
}

// ResolveTimeseries maps identifiers to Series values
func (s *clickhouseStore) ResolveTimeseries(ctx context.Context, ids []string) ([]completeness.Series, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("'%s'", quote(id))
	}

	query := fmt.Sprintf(`
		SELECT toString(id) AS id, name
		FROM timeseries
		WHERE id IN (%s)`,
		strings.Join(quoted, ","))

	var rows []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	err := s.client.QueryMany(ctx, query, &rows)
	recordQuery(BackendClickHouse, err)

	if err != nil {
		return nil, fmt.Errorf("failed to resolve timeseries: %w", err)
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}

	series := make([]completeness.Series, 0, len(ids))

	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTimeseries, id)
		}

		series = append(series, completeness.Series{ID: id, Name: name})
	}

	return series, nil
}

// quote escapes a string literal for interpolation into a ClickHouse query
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return strings.ReplaceAll(s, `'`, `\'`)
}
