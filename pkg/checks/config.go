// Package checks provides scheduled completeness checks: which timeseries to
// watch, how often to look, and over what window.
package checks

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openbms/tsdq/pkg/completeness"
)

// Report key conventions for rendered check results
const (
	KeyByID   = "id"
	KeyByName = "name"
)

// Define static errors
var (
	ErrNameRequired       = errors.New("check name is required")
	ErrTimeseriesRequired = errors.New("check needs at least one timeseries")
	ErrLookbackRequired   = errors.New("check lookback must be positive")
	ErrInvalidKey         = errors.New("check key must be id or name")
	ErrDuplicateCheck     = errors.New("duplicate check name")
	ErrUnknownCheck       = errors.New("unknown check")
)

// Check is one scheduled completeness check. Each run computes a report over
// the trailing lookback window, bucketed by the configured period, and caches
// the rendered result under the check name.
type Check struct {
	Name       string        `yaml:"name"`
	Schedule   string        `yaml:"schedule" default:"@hourly"`
	Timeseries []string      `yaml:"timeseries"`
	DataState  string        `yaml:"dataState" default:"Raw"`
	Period     string        `yaml:"period" default:"1 hour"`
	Timezone   string        `yaml:"timezone" default:"UTC"`
	Lookback   time.Duration `yaml:"lookback" default:"24h"`
	ResultTTL  time.Duration `yaml:"resultTTL" default:"2h"`
	Key        string        `yaml:"key" default:"id"`
}

// Validate checks the check definition
func (c *Check) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}

	if len(c.Timeseries) == 0 {
		return ErrTimeseriesRequired
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	if _, _, err := completeness.ParsePeriod(c.Period); err != nil {
		return fmt.Errorf("invalid period %q: %w", c.Period, err)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if c.Lookback <= 0 {
		return ErrLookbackRequired
	}

	if c.Key != KeyByID && c.Key != KeyByName {
		return fmt.Errorf("%w, got %q", ErrInvalidKey, c.Key)
	}

	return nil
}

// Config holds the set of scheduled checks
type Config struct {
	Checks []Check `yaml:"checks"`
}

// Validate checks all check definitions and rejects duplicate names
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Checks))

	for i := range c.Checks {
		check := &c.Checks[i]

		if err := check.Validate(); err != nil {
			return fmt.Errorf("check %q: %w", check.Name, err)
		}

		if _, ok := seen[check.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCheck, check.Name)
		}

		seen[check.Name] = struct{}{}
	}

	return nil
}

// Find returns the check with the given name
func (c *Config) Find(name string) (*Check, error) {
	for i := range c.Checks {
		if c.Checks[i].Name == name {
			return &c.Checks[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
}
