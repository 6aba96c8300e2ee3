// Package completeness computes data completeness reports for irregularly
// sampled timeseries: per reporting bucket, how many samples were observed
// versus how many the series' sampling interval predicts.
package completeness

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Define static errors
var (
	// ErrInvalidPeriod is returned when a bucket unit is unrecognized or a
	// multiplier is not positive
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidRange is returned when a requested range is empty or inverted
	ErrInvalidRange = errors.New("start must be before end")
)

// Unit is the width unit of one reporting bucket
type Unit string

// Supported bucket units, fixed-width first, then calendar units
const (
	UnitSecond Unit = "second"
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitWeek   Unit = "week"
	UnitMonth  Unit = "month"
	UnitYear   Unit = "year"
)

// ParseUnit parses a bucket unit name, accepting an optional plural form
func ParseUnit(s string) (Unit, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimSuffix(name, "s")

	switch u := Unit(name); u {
	case UnitSecond, UnitMinute, UnitHour, UnitDay, UnitWeek, UnitMonth, UnitYear:
		return u, nil
	default:
		return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidPeriod, s)
	}
}

// ParsePeriod parses a human-readable period string such as "1 month" or
// "15 minutes" into a multiplier and a bucket unit
func ParsePeriod(period string) (int, Unit, error) {
	fields := strings.Fields(period)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	multiplier, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	if multiplier <= 0 {
		return 0, "", fmt.Errorf("%w: multiplier must be positive in %q", ErrInvalidPeriod, period)
	}

	unit, err := ParseUnit(fields[1])
	if err != nil {
		return 0, "", err
	}

	return multiplier, unit, nil
}
