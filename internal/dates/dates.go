// Package dates computes the JST reporting windows the jobs operate on.
// All stored dates are JST strings; the range bounds are absolute instants
// so drive listings are timezone-safe.
package dates

import (
	"fmt"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// JST is fixed rather than looked up so the binary does not depend on the
// host tzdata. Japan has no DST.
var JST = time.FixedZone("JST", 9*60*60)

// Range is a closed reporting window with its JST label(s).
type Range struct {
	Start time.Time
	End   time.Time
}

// DailyRange returns the previous day in JST relative to now.
func DailyRange(now time.Time) (Range, string) {
	day := now.In(JST).AddDate(0, 0, -1)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, JST)
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return Range{Start: start, End: end}, start.Format(DateLayout)
}

// WeeklyRange returns the previous Monday-to-Sunday week in JST relative to
// now, with the week's start and end date strings.
func WeeklyRange(now time.Time) (Range, string, string) {
	local := now.In(JST)
	// Days since Monday of the current week.
	sinceMonday := (int(local.Weekday()) + 6) % 7
	currentMonday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, JST).
		AddDate(0, 0, -sinceMonday)
	start := currentMonday.AddDate(0, 0, -7)
	end := currentMonday.Add(-time.Second)
	return Range{Start: start, End: end},
		start.Format(DateLayout),
		end.Format(DateLayout)
}

// MonthlyRange returns the previous calendar month in JST relative to now,
// with its yyyy-MM label.
func MonthlyRange(now time.Time) (Range, string) {
	local := now.In(JST)
	firstOfThisMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, JST)
	start := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfThisMonth.Add(-time.Second)
	return Range{Start: start, End: end}, start.Format("2006-01")
}

// ToJSTString renders an instant as a JST datetime string for sheet cells.
func ToJSTString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(JST).Format(DateTimeLayout)
}

// FormatTimestamp renders a lesson offset as mm:ss for transcripts and
// emotion segments.
func FormatTimestamp(ms int64) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}
