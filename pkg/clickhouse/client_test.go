package clickhouse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "valid config",
			config: Config{URL: "http://localhost:8123"},
		},
		{
			name:        "missing URL",
			config:      Config{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.ErrorIs(t, err, ErrURLRequired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	config := Config{URL: "http://localhost:8123"}

	config.SetDefaults()

	assert.Equal(t, "bms", config.Database)
	assert.Equal(t, 30*time.Second, config.QueryTimeout)
	assert.Equal(t, 30*time.Second, config.KeepAlive)
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	return log
}

func TestClientQueryMany(t *testing.T) {
	var gotQuery string
	var gotDatabase string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		gotDatabase = r.Header.Get("X-ClickHouse-Database")

		_, _ = w.Write([]byte(`{"data":[{"bucket":0,"samples":42},{"bucket":2,"samples":7}],"rows":2}`))
	}))
	defer srv.Close()

	c, err := NewClient(newTestLogger(), &Config{URL: srv.URL, Database: "bms_test"})
	require.NoError(t, err)

	var rows []struct {
		Bucket  int   `json:"bucket"`
		Samples int64 `json:"samples"`
	}
	require.NoError(t, c.QueryMany(context.Background(), "SELECT bucket, samples FROM t", &rows))

	require.Len(t, rows, 2)
	assert.Equal(t, int64(42), rows[0].Samples)
	assert.Equal(t, 2, rows[1].Bucket)
	assert.Contains(t, gotQuery, "FORMAT JSON")
	assert.Equal(t, "bms_test", gotDatabase)
}

func TestClientQueryManyRequiresSlicePointer(t *testing.T) {
	c, err := NewClient(newTestLogger(), &Config{URL: "http://localhost:8123"})
	require.NoError(t, err)

	var notASlice int
	err = c.QueryMany(context.Background(), "SELECT 1", &notASlice)
	assert.ErrorIs(t, err, ErrDestMustBePointerToSlice)
}

func TestClientQueryOneNoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"rows":0}`))
	}))
	defer srv.Close()

	c, err := NewClient(newTestLogger(), &Config{URL: srv.URL})
	require.NoError(t, err)

	result := struct {
		Value string `json:"value"`
	}{Value: "untouched"}
	require.NoError(t, c.QueryOne(context.Background(), "SELECT value FROM t", &result))
	assert.Equal(t, "untouched", result.Value)
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"exception":"Code: 60. DB::Exception: Table bms.missing does not exist"}`))
	}))
	defer srv.Close()

	c, err := NewClient(newTestLogger(), &Config{URL: srv.URL})
	require.NoError(t, err)

	var rows []struct{}
	err = c.QueryMany(context.Background(), "SELECT * FROM missing", &rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClickHouseResponse)
	assert.ErrorContains(t, err, "does not exist")
}
