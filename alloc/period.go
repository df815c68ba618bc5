package alloc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - The ordered key every allocation pass runs against
// =============================================================================

// Period identifies one planning week as an ISO-8601 year/week pair.
// Periods form a strict total order (Compare) and the engine walks them
// with Next(), which handles 52- and 53-week years correctly.
//
// Rendered as "2026-W01". The week label is zero-padded so rendered keys
// also sort correctly within a year, matching the snapshot files.
type Period struct {
	Year int
	Week int
}

// NewPeriod validates the week number against the given ISO year.
func NewPeriod(year, week int) (Period, error) {
	if year < 1 {
		return Period{}, fmt.Errorf("year %d: %w", year, ErrInvalidPeriod)
	}
	if week < 1 || week > weeksInYear(year) {
		return Period{}, fmt.Errorf("week %d of %d: %w", week, year, ErrInvalidPeriod)
	}
	return Period{Year: year, Week: week}, nil
}

// PeriodOf returns the period containing the given instant.
func PeriodOf(t time.Time) Period {
	y, w := t.ISOWeek()
	return Period{Year: y, Week: w}
}

// ParsePeriod parses a "2026-W01" label.
func ParsePeriod(s string) (Period, error) {
	yearPart, weekPart, ok := strings.Cut(strings.TrimSpace(s), "-W")
	if !ok {
		return Period{}, fmt.Errorf("period %q: %w", s, ErrInvalidPeriod)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", s, ErrInvalidPeriod)
	}
	week, err := strconv.Atoi(weekPart)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", s, ErrInvalidPeriod)
	}
	return NewPeriod(year, week)
}

func (p Period) String() string {
	return fmt.Sprintf("%d-W%02d", p.Year, p.Week)
}

// IsZero reports whether p is the uninitialized value.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Week == 0
}

// Compare returns -1, 0, or +1 ordering p against q chronologically.
func (p Period) Compare(q Period) int {
	switch {
	case p.Year != q.Year:
		if p.Year < q.Year {
			return -1
		}
		return 1
	case p.Week != q.Week:
		if p.Week < q.Week {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (p Period) Before(q Period) bool { return p.Compare(q) < 0 }
func (p Period) After(q Period) bool  { return p.Compare(q) > 0 }
func (p Period) Equal(q Period) bool  { return p.Compare(q) == 0 }

// Next returns the following week, rolling into W01 of the next ISO year
// after the final week.
func (p Period) Next() Period {
	return PeriodOf(p.Monday().AddDate(0, 0, 7))
}

// Monday returns the first day of the period, UTC midnight.
func (p Period) Monday() time.Time {
	// ISO 8601: week 1 is the week containing January 4.
	jan4 := time.Date(p.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7 // Sunday
	}
	week1Monday := jan4.AddDate(0, 0, 1-wd)
	return week1Monday.AddDate(0, 0, (p.Week-1)*7)
}

// weeksInYear returns 52 or 53. December 28 always falls in the last ISO
// week of its year.
func weeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}
