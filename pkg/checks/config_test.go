package checks

import (
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCheck() Check {
	return Check{
		Name:       "hourly-power",
		Schedule:   "@hourly",
		Timeseries: []string{"101", "102"},
		DataState:  "Raw",
		Period:     "1 hour",
		Timezone:   "UTC",
		Lookback:   24 * time.Hour,
		ResultTTL:  2 * time.Hour,
		Key:        KeyByID,
	}
}

func TestCheckValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Check)
		expectedErr error
		expectError bool
	}{
		{
			name:   "valid check",
			mutate: func(_ *Check) {},
		},
		{
			name:   "cron expression schedule",
			mutate: func(c *Check) { c.Schedule = "15 2 * * *" },
		},
		{
			name:   "every schedule",
			mutate: func(c *Check) { c.Schedule = "@every 30m" },
		},
		{
			name:        "missing name",
			mutate:      func(c *Check) { c.Name = "" },
			expectedErr: ErrNameRequired,
		},
		{
			name:        "no timeseries",
			mutate:      func(c *Check) { c.Timeseries = nil },
			expectedErr: ErrTimeseriesRequired,
		},
		{
			name:        "invalid schedule",
			mutate:      func(c *Check) { c.Schedule = "whenever" },
			expectError: true,
		},
		{
			name:        "invalid period",
			mutate:      func(c *Check) { c.Period = "1 fortnight" },
			expectError: true,
		},
		{
			name:        "invalid timezone",
			mutate:      func(c *Check) { c.Timezone = "Mars/Olympus" },
			expectError: true,
		},
		{
			name:        "zero lookback",
			mutate:      func(c *Check) { c.Lookback = 0 },
			expectedErr: ErrLookbackRequired,
		},
		{
			name:        "invalid key",
			mutate:      func(c *Check) { c.Key = "uuid" },
			expectedErr: ErrInvalidKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := validCheck()
			tt.mutate(&check)

			err := check.Validate()

			switch {
			case tt.expectedErr != nil:
				assert.ErrorIs(t, err, tt.expectedErr)
			case tt.expectError:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidateDuplicates(t *testing.T) {
	config := Config{Checks: []Check{validCheck(), validCheck()}}

	err := config.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateCheck)
}

func TestConfigFind(t *testing.T) {
	config := Config{Checks: []Check{validCheck()}}

	check, err := config.Find("hourly-power")
	require.NoError(t, err)
	assert.Equal(t, "hourly-power", check.Name)

	_, err = config.Find("nightly-water")
	assert.ErrorIs(t, err, ErrUnknownCheck)
}

func TestCheckDefaults(t *testing.T) {
	config := &Config{Checks: []Check{{Name: "hourly-power", Timeseries: []string{"101"}}}}
	require.NoError(t, defaults.Set(config))

	check := config.Checks[0]
	assert.Equal(t, "@hourly", check.Schedule)
	assert.Equal(t, "Raw", check.DataState)
	assert.Equal(t, "1 hour", check.Period)
	assert.Equal(t, "UTC", check.Timezone)
	assert.Equal(t, 24*time.Hour, check.Lookback)
	assert.Equal(t, 2*time.Hour, check.ResultTTL)
	assert.Equal(t, KeyByID, check.Key)

	require.NoError(t, config.Validate())
}
