package completeness

import (
	"fmt"
	"time"
)

// Grid is a reporting grid over a requested range: ordered bucket start
// instants and the wall-clock duration of each bucket in seconds.
//
// Fixed-width units (second, minute, hour) lay buckets from the exact start
// instant. Day buckets step by wall-clock days in the target zone, so a
// bucket spanning a DST transition is 23 or 25 hours long. Calendar units
// (week, month, year) snap the first boundary down to the unit's canonical
// start (Monday midnight, 1st of month, January 1st), so the first bucket
// may begin before the requested start.
//
// Durations are the overlap of each bucket with the requested [start, end)
// range: the first bucket is clipped at start and the last at end. This
// keeps expected counts consistent with observed counts, which are taken
// over the same range.
type Grid struct {
	Starts    []time.Time
	Durations []float64

	fence []time.Time
}

// NewGrid generates the bucket grid covering [start, end) with buckets of
// multiplier * unit width in the given IANA timezone
func NewGrid(start, end time.Time, multiplier int, unit Unit, timezone string) (*Grid, error) {
	if multiplier <= 0 {
		return nil, fmt.Errorf("%w: multiplier must be positive, got %d", ErrInvalidPeriod, multiplier)
	}

	if !start.Before(end) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidRange, start, end)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	s := start.In(loc)
	e := end.In(loc)

	starts, err := bucketStarts(s, e, multiplier, unit, loc)
	if err != nil {
		return nil, err
	}

	// Half-open bucket bounds clipped to the requested range. Interior
	// bounds are the bucket starts themselves; only the outer two differ
	// when the unit is calendar-aligned.
	fence := make([]time.Time, 0, len(starts)+1)
	fence = append(fence, s)
	fence = append(fence, starts[1:]...)
	fence = append(fence, e)

	durations := make([]float64, len(starts))
	for i := range durations {
		durations[i] = fence[i+1].Sub(fence[i]).Seconds()
	}

	return &Grid{Starts: starts, Durations: durations, fence: fence}, nil
}

// Fence returns the len(Starts)+1 half-open bucket bounds, clipped to the
// requested range. Bucket i covers [Fence()[i], Fence()[i+1]).
func (g *Grid) Fence() []time.Time {
	return g.fence
}

func bucketStarts(s, e time.Time, multiplier int, unit Unit, loc *time.Location) ([]time.Time, error) {
	var (
		first time.Time
		next  func(i int) time.Time
	)

	switch unit {
	case UnitSecond, UnitMinute, UnitHour:
		step := time.Duration(multiplier) * fixedUnitLength(unit)
		first = s
		next = func(i int) time.Time { return first.Add(time.Duration(i) * step) }
	case UnitDay:
		// Wall-clock days from the exact start instant, no snapping
		first = s
		next = func(i int) time.Time { return first.AddDate(0, 0, i*multiplier) }
	case UnitWeek:
		// Zone-local midnight of the most recent Monday at/before start
		sinceMonday := (int(s.Weekday()) + 6) % 7
		first = time.Date(s.Year(), s.Month(), s.Day()-sinceMonday, 0, 0, 0, 0, loc)
		next = func(i int) time.Time { return first.AddDate(0, 0, 7*i*multiplier) }
	case UnitMonth:
		first = time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, loc)
		next = func(i int) time.Time { return first.AddDate(0, i*multiplier, 0) }
	case UnitYear:
		first = time.Date(s.Year(), time.January, 1, 0, 0, 0, 0, loc)
		next = func(i int) time.Time { return first.AddDate(i*multiplier, 0, 0) }
	default:
		return nil, fmt.Errorf("%w: unknown unit %q", ErrInvalidPeriod, unit)
	}

	var starts []time.Time
	for i := 0; ; i++ {
		cur := next(i)
		if !cur.Before(e) {
			break
		}
		starts = append(starts, cur)
	}

	return starts, nil
}

func fixedUnitLength(unit Unit) time.Duration {
	switch unit {
	case UnitSecond:
		return time.Second
	case UnitMinute:
		return time.Minute
	default:
		return time.Hour
	}
}
