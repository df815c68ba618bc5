package alloc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// PARSING AND RENDERING
// =============================================================================

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in      string
		want    alloc.Period
		wantErr bool
	}{
		{"2026-W01", alloc.Period{Year: 2026, Week: 1}, false},
		{"2026-W53", alloc.Period{Year: 2026, Week: 53}, false},
		{"2025-W52", alloc.Period{Year: 2025, Week: 52}, false},
		{"2025-W53", alloc.Period{}, true}, // 2025 has 52 ISO weeks
		{"2026-W00", alloc.Period{}, true},
		{"2026-W54", alloc.Period{}, true},
		{"2026W01", alloc.Period{}, true},
		{"2026-01", alloc.Period{}, true},
		{"abcd-W01", alloc.Period{}, true},
		{"", alloc.Period{}, true},
	}
	for _, c := range cases {
		got, err := alloc.ParsePeriod(c.in)
		if c.wantErr {
			if !errors.Is(err, alloc.ErrInvalidPeriod) {
				t.Errorf("ParsePeriod(%q): got err %v, want ErrInvalidPeriod", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("ParsePeriod(%q) = %v, %v; want %v", c.in, got, err, c.want)
		}
	}
}

func TestPeriodString_ZeroPadsWeek(t *testing.T) {
	p := alloc.Period{Year: 2026, Week: 7}
	if p.String() != "2026-W07" {
		t.Errorf("got %q, want 2026-W07", p.String())
	}
}

func TestPeriodString_RoundTrips(t *testing.T) {
	for _, s := range []string{"2024-W09", "2026-W33", "2020-W53"} {
		p, err := alloc.ParsePeriod(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if p.String() != s {
			t.Errorf("round trip %q -> %q", s, p.String())
		}
	}
}

// =============================================================================
// ORDERING
// =============================================================================

func TestPeriodCompare(t *testing.T) {
	earlier := alloc.Period{Year: 2025, Week: 52}
	later := alloc.Period{Year: 2026, Week: 1}

	if !earlier.Before(later) {
		t.Error("2025-W52 should sort before 2026-W01")
	}
	if !later.After(earlier) {
		t.Error("2026-W01 should sort after 2025-W52")
	}
	if earlier.Compare(later) >= 0 || later.Compare(earlier) <= 0 {
		t.Error("Compare disagrees with Before/After")
	}
	if !earlier.Equal(earlier) || earlier.Compare(earlier) != 0 {
		t.Error("a period should equal itself")
	}

	sameYear := alloc.Period{Year: 2026, Week: 2}
	if !later.Before(sameYear) {
		t.Error("2026-W01 should sort before 2026-W02")
	}
}

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================

func TestPeriodNext_WithinYear(t *testing.T) {
	p := alloc.Period{Year: 2026, Week: 10}
	if got := p.Next(); got != (alloc.Period{Year: 2026, Week: 11}) {
		t.Errorf("got %s, want 2026-W11", got)
	}
}

func TestPeriodNext_AcrossYearBoundary(t *testing.T) {
	// 2025 ends at W52; 2020 is a long year ending at W53.
	cases := []struct {
		in, want alloc.Period
	}{
		{alloc.Period{Year: 2025, Week: 52}, alloc.Period{Year: 2026, Week: 1}},
		{alloc.Period{Year: 2020, Week: 53}, alloc.Period{Year: 2021, Week: 1}},
		{alloc.Period{Year: 2026, Week: 53}, alloc.Period{Year: 2027, Week: 1}},
	}
	for _, c := range cases {
		if got := c.in.Next(); got != c.want {
			t.Errorf("%s.Next() = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestPeriodMonday(t *testing.T) {
	// ISO week 2026-W01 starts Monday 2025-12-29.
	p := alloc.Period{Year: 2026, Week: 1}
	m := p.Monday()
	if m.Year() != 2025 || m.Month() != time.December || m.Day() != 29 {
		t.Errorf("Monday of 2026-W01 = %s, want 2025-12-29", m.Format("2006-01-02"))
	}
	if m.Weekday() != time.Monday {
		t.Errorf("weekday = %s, want Monday", m.Weekday())
	}
}

func TestPeriodOf(t *testing.T) {
	cases := []struct {
		day  time.Time
		want alloc.Period
	}{
		{time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), alloc.Period{Year: 2026, Week: 1}},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), alloc.Period{Year: 2026, Week: 1}},
		{time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), alloc.Period{Year: 2020, Week: 53}},
		{time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC), alloc.Period{Year: 2026, Week: 25}},
	}
	for _, c := range cases {
		if got := alloc.PeriodOf(c.day); got != c.want {
			t.Errorf("PeriodOf(%s) = %s, want %s", c.day.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestNewPeriod_ValidatesWeekRange(t *testing.T) {
	if _, err := alloc.NewPeriod(2025, 53); !errors.Is(err, alloc.ErrInvalidPeriod) {
		t.Errorf("2025-W53: got %v, want ErrInvalidPeriod", err)
	}
	if _, err := alloc.NewPeriod(2026, 53); err != nil {
		t.Errorf("2026-W53 is a valid long-year week: %v", err)
	}
	if _, err := alloc.NewPeriod(2026, 0); !errors.Is(err, alloc.ErrInvalidPeriod) {
		t.Errorf("week 0: got %v, want ErrInvalidPeriod", err)
	}
}
