package checks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbms/tsdq/internal/testutil"
	"github.com/openbms/tsdq/pkg/cache"
)

// testWorker builds a worker over an in-memory store and redis, pinned to a
// fixed clock so the run window is deterministic
func testWorker(t *testing.T, check Check, st *testutil.FakeStore, now time.Time) (*worker, *cache.Manager) {
	t.Helper()

	mr, client := testutil.NewMiniredisClient(t)

	reports := cache.NewManager(client, "tsdq")

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	w, ok := NewWorker(log, []Check{check}, st, reports, &goredis.Options{Addr: mr.Addr()}, "tsdq:checks", 1).(*worker)
	require.True(t, ok)

	w.now = func() time.Time { return now }

	return w, reports
}

func checkTask(t *testing.T, name string) *asynq.Task {
	t.Helper()

	payload, err := json.Marshal(TaskPayload{CheckName: name})
	require.NoError(t, err)

	return asynq.NewTask(TypeCompletenessCheck, payload)
}

func TestHandleCheckCachesReport(t *testing.T) {
	now := time.Date(2020, 2, 1, 12, 0, 0, 0, time.UTC)

	st := testutil.NewFakeStore()
	power := st.Add("101", "Site power", testutil.Float(600))
	power.Samples["Raw"] = testutil.Regular(now.Add(-24*time.Hour), now, 10*time.Minute)

	check := validCheck()
	check.Timeseries = []string{"101"}
	check.Period = "1 hour"

	w, reports := testWorker(t, check, st, now)

	require.NoError(t, w.handleCheck(context.Background(), checkTask(t, check.Name)))

	cached, err := reports.GetReport(context.Background(), check.Name)
	require.NoError(t, err)
	require.NotNil(t, cached)

	assert.Equal(t, check.Name, cached.CheckName)
	assert.NotEmpty(t, cached.RunID)
	assert.Equal(t, "Raw", cached.DataState)
	assert.True(t, cached.End.Equal(now))
	assert.True(t, cached.Start.Equal(now.Add(-24*time.Hour)))

	series, ok := cached.Report["timeseries"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, series, "101")

	// 24 one-hour buckets, six samples each at a 600s interval. The report
	// went through JSON, so numbers come back as float64.
	figures, ok := series["101"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(144), figures["total_count"])

	avgRatio, ok := figures["avg_ratio"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 1.0, avgRatio, 1e-9)
}

func TestHandleCheckKeyByName(t *testing.T) {
	now := time.Date(2020, 2, 1, 12, 0, 0, 0, time.UTC)

	st := testutil.NewFakeStore()
	power := st.Add("101", "Site power", testutil.Float(600))
	power.Samples["Raw"] = testutil.Regular(now.Add(-24*time.Hour), now, 10*time.Minute)

	check := validCheck()
	check.Timeseries = []string{"101"}
	check.Key = KeyByName

	w, reports := testWorker(t, check, st, now)

	require.NoError(t, w.handleCheck(context.Background(), checkTask(t, check.Name)))

	cached, err := reports.GetReport(context.Background(), check.Name)
	require.NoError(t, err)
	require.NotNil(t, cached)

	series, ok := cached.Report["timeseries"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, series, "Site power")
	assert.NotContains(t, series, "101")
}

func TestHandleCheckUnknownCheck(t *testing.T) {
	now := time.Date(2020, 2, 1, 12, 0, 0, 0, time.UTC)

	w, _ := testWorker(t, validCheck(), testutil.NewFakeStore(), now)

	err := w.handleCheck(context.Background(), checkTask(t, "nightly-water"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCheck)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleCheckUnknownTimeseries(t *testing.T) {
	now := time.Date(2020, 2, 1, 12, 0, 0, 0, time.UTC)

	check := validCheck()
	check.Timeseries = []string{"999"}

	// Store is empty, so the timeseries cannot be resolved
	w, _ := testWorker(t, check, testutil.NewFakeStore(), now)

	err := w.handleCheck(context.Background(), checkTask(t, check.Name))
	require.Error(t, err)
}

func TestHandleCheckBadPayload(t *testing.T) {
	now := time.Date(2020, 2, 1, 12, 0, 0, 0, time.UTC)

	w, _ := testWorker(t, validCheck(), testutil.NewFakeStore(), now)

	err := w.handleCheck(context.Background(), asynq.NewTask(TypeCompletenessCheck, []byte("not json")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
