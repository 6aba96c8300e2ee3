package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/openbms/tsdq/pkg/completeness"
)

// postgresStore reads timeseries data from a PostgreSQL database holding the
// timeseries, timeseries_data and timeseries_property tables
type postgresStore struct {
	log logrus.FieldLogger
	cfg *PostgresConfig
	db  *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed timeseries store. The
// connection is opened on Start.
func NewPostgresStore(log logrus.FieldLogger, cfg *PostgresConfig) Store {
	return &postgresStore{
		log: log.WithField("component", "store/postgres"),
		cfg: cfg,
	}
}

func (s *postgresStore) Start() error {
	db, err := sql.Open("postgres", s.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s.db = db

	s.log.Info("Connected to PostgreSQL")

	return nil
}

func (s *postgresStore) Stop() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}

	s.log.Info("Closed PostgreSQL connection")

	return nil
}

// BucketCounts groups samples into fence buckets with width_bucket. The
// thresholds are the bucket start epochs, so width_bucket yields 1..N for
// in-range samples and the query shifts it to a 0-based index.
func (s *postgresStore) BucketCounts(ctx context.Context, seriesID, dataState string, fence []time.Time) ([]int64, error) {
	epochs := fenceEpochs(fence)

	starts := make([]float64, len(epochs)-1)
	for i, e := range epochs[:len(epochs)-1] {
		starts[i] = float64(e)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT width_bucket(extract(epoch FROM timestamp), $1) - 1 AS bucket,
			count(*) AS samples
		FROM timeseries_data
		WHERE timeseries_id = $2
			AND data_state = $3
			AND timestamp >= $4
			AND timestamp < $5
		GROUP BY bucket
		ORDER BY bucket`,
		pq.Array(starts), seriesID, dataState, fence[0], fence[len(fence)-1])

	recordQuery(BackendPostgres, err)

	if err != nil {
		return nil, fmt.Errorf("failed to query bucket counts: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.WithError(closeErr).Debug("Failed to close rows")
		}
	}()

	counts := make([]int64, len(starts))

	for rows.Next() {
		var (
			bucket  int
			samples int64
		)

		if err := rows.Scan(&bucket, &samples); err != nil {
			return nil, fmt.Errorf("failed to scan bucket count: %w", err)
		}

		if bucket < 0 || bucket >= len(counts) {
			return nil, fmt.Errorf("bucket index %d out of range for %d buckets", bucket, len(counts))
		}

		counts[bucket] = samples
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bucket counts: %w", err)
	}

	return counts, nil
}

// SampleTimestamps returns the ordered sample timestamps in [start, end)
func (s *postgresStore) SampleTimestamps(ctx context.Context, seriesID, dataState string, start, end time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp
		FROM timeseries_data
		WHERE timeseries_id = $1
			AND data_state = $2
			AND timestamp >= $3
			AND timestamp < $4
		ORDER BY timestamp`,
		seriesID, dataState, start, end)

	recordQuery(BackendPostgres, err)

	if err != nil {
		return nil, fmt.Errorf("failed to query sample timestamps: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.WithError(closeErr).Debug("Failed to close rows")
		}
	}()

	var stamps []time.Time

	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan sample timestamp: %w", err)
		}

		stamps = append(stamps, ts.UTC())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sample timestamps: %w", err)
	}

	return stamps, nil
}

// DeclaredInterval looks up the sampling interval property of the series
func (s *postgresStore) DeclaredInterval(ctx context.Context, seriesID string) (*float64, error) {
	var value float64

	err := s.db.QueryRowContext(ctx, `
		SELECT value::double precision
		FROM timeseries_property
		WHERE timeseries_id = $1
			AND name = $2`,
		seriesID, IntervalProperty).Scan(&value)

	// A missing property row is a successful lookup, not a query failure
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery(BackendPostgres, nil)

		return nil, nil
	}

	recordQuery(BackendPostgres, err)

	if err != nil {
		return nil, fmt.Errorf("failed to query declared interval: %w", err)
	}

	return &value, nil
}

// ResolveTimeseries maps identifiers to Series values
func (s *postgresStore) ResolveTimeseries(ctx context.Context, ids []string) ([]completeness.Series, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id::text, name
		FROM timeseries
		WHERE id::text = ANY($1)`,
		pq.Array(ids))

	recordQuery(BackendPostgres, err)

	if err != nil {
		return nil, fmt.Errorf("failed to resolve timeseries: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.WithError(closeErr).Debug("Failed to close rows")
		}
	}()

	names := make(map[string]string, len(ids))

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan timeseries: %w", err)
		}

		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timeseries: %w", err)
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
