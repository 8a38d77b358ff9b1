package dates

import (
	"testing"
	"time"
)

// 2026-08-28 is a Friday; 03:00 JST is 2026-08-27 18:00 UTC.
var friday = time.Date(2026, 8, 27, 18, 0, 0, 0, time.UTC)

func TestDailyRange(t *testing.T) {
	r, label := DailyRange(friday)
	if label != "2026-08-27" {
		t.Fatalf("expected previous JST day, got %q", label)
	}
	wantStart := time.Date(2026, 8, 27, 0, 0, 0, 0, JST)
	wantEnd := time.Date(2026, 8, 27, 23, 59, 59, 0, JST)
	if !r.Start.Equal(wantStart) || !r.End.Equal(wantEnd) {
		t.Fatalf("unexpected range: %v .. %v", r.Start, r.End)
	}
}

func TestWeeklyRangePreviousMondayToSunday(t *testing.T) {
	r, startStr, endStr := WeeklyRange(friday)
	if startStr != "2026-08-17" || endStr != "2026-08-23" {
		t.Fatalf("expected 2026-08-17..2026-08-23, got %s..%s", startStr, endStr)
	}
	if r.Start.Weekday() != time.Monday {
		t.Fatalf("week must start Monday, got %v", r.Start.Weekday())
	}
	if r.End.Weekday() != time.Sunday {
		t.Fatalf("week must end Sunday, got %v", r.End.Weekday())
	}
}

// Running on a Monday must still report the full prior week, not an empty
// window.
func TestWeeklyRangeOnMonday(t *testing.T) {
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, JST)
	_, startStr, endStr := WeeklyRange(monday)
	if startStr != "2026-08-17" || endStr != "2026-08-23" {
		t.Fatalf("expected prior full week, got %s..%s", startStr, endStr)
	}
}

func TestMonthlyRange(t *testing.T) {
	r, label := MonthlyRange(friday)
	if label != "2026-07" {
		t.Fatalf("expected previous month, got %q", label)
	}
	if r.Start.Day() != 1 || r.Start.Month() != time.July {
		t.Fatalf("unexpected start: %v", r.Start)
	}
	if r.End.Month() != time.July || r.End.Day() != 31 {
		t.Fatalf("unexpected end: %v", r.End)
	}
}

func TestMonthlyRangeAcrossYearBoundary(t *testing.T) {
	january := time.Date(2026, 1, 15, 12, 0, 0, 0, JST)
	_, label := MonthlyRange(january)
	if label != "2025-12" {
		t.Fatalf("expected 2025-12, got %q", label)
	}
}

func TestToJSTString(t *testing.T) {
	if got := ToJSTString(time.Time{}); got != "" {
		t.Fatalf("zero time must render empty, got %q", got)
	}
	utc := time.Date(2026, 8, 27, 15, 30, 0, 0, time.UTC)
	if got := ToJSTString(utc); got != "2026-08-28 00:30:00" {
		t.Fatalf("expected JST conversion, got %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "00:00"},
		{999, "00:00"},
		{1000, "00:01"},
		{96000, "01:36"},
		{3599000, "59:59"},
		{3600000, "60:00"},
	}
	for _, c := range cases {
		if got := FormatTimestamp(c.ms); got != c.want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", c.ms, got, c.want)
		}
	}
}
