package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return mr, client
}

func sampleReport(name string) *CachedReport {
	now := time.Now().UTC()

	return &CachedReport{
		CheckName:   name,
		RunID:       "f7f0d72e-20a2-4f6c-8a9e-0e6c34b91f01",
		DataState:   "Raw",
		Start:       now.Add(-24 * time.Hour),
		End:         now,
		Report:      map[string]interface{}{"timestamps": []interface{}{}},
		GeneratedAt: now,
		TTL:         time.Hour,
	}
}

func TestManagerGetSetReport(t *testing.T) {
	_, client := setupTestRedis(t)
	defer client.Close()

	m := NewManager(client, "tsdq")
	ctx := context.Background()

	report := sampleReport("hourly-power")
	require.NoError(t, m.SetReport(ctx, report))

	// Keys are namespaced under the prefix
	_, err := client.Get(ctx, "tsdq:reports:hourly-power").Result()
	require.NoError(t, err)

	retrieved, err := m.GetReport(ctx, "hourly-power")
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, report.CheckName, retrieved.CheckName)
	assert.Equal(t, report.RunID, retrieved.RunID)
	assert.Equal(t, report.DataState, retrieved.DataState)
	assert.True(t, report.Start.Equal(retrieved.Start))
}

func TestManagerGetReportCacheMiss(t *testing.T) {
	_, client := setupTestRedis(t)
	defer client.Close()

	m := NewManager(client, "tsdq")

	report, err := m.GetReport(context.Background(), "never-ran")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestManagerGetReportExpired(t *testing.T) {
	_, client := setupTestRedis(t)
	defer client.Close()

	m := NewManager(client, "tsdq")
	ctx := context.Background()

	// A report generated two hours ago with a one hour expiry is stale even
	// while the Redis key still exists
	report := sampleReport("hourly-power")
	report.GeneratedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, m.SetReport(ctx, report))

	data, err := client.Get(ctx, "tsdq:reports:hourly-power").Result()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	retrieved, err := m.GetReport(ctx, "hourly-power")
	require.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestManagerInvalidateReport(t *testing.T) {
	_, client := setupTestRedis(t)
	defer client.Close()

	m := NewManager(client, "tsdq")
	ctx := context.Background()

	require.NoError(t, m.SetReport(ctx, sampleReport("hourly-power")))
	require.NoError(t, m.InvalidateReport(ctx, "hourly-power"))

	report, err := m.GetReport(ctx, "hourly-power")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestManagerRedisTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer client.Close()

	m := NewManager(client, "tsdq")
	ctx := context.Background()

	require.NoError(t, m.SetReport(ctx, sampleReport("hourly-power")))

	mr.FastForward(2 * time.Hour)

	report, err := m.GetReport(ctx, "hourly-power")
	require.NoError(t, err)
	assert.Nil(t, report)
}
