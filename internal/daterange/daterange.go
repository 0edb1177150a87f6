// Package daterange holds the calendar-day arithmetic shared by the booking engine.
// All comparisons happen on civil dates: time of day and zone offsets never
// move a booking onto a neighbouring day.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Layout        = "2006-01-02"
	secondsPerDay = 24 * 60 * 60
)

var ErrInvalidRange = errors.New("daterange: end date precedes start date")

// Normalize returns midnight of t's calendar day in t's own location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// civil maps t to midnight UTC of the same calendar day so days from
// different locations compare by date only.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key formats the calendar day of t as YYYY-MM-DD.
func Key(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a YYYY-MM-DD day at midnight UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// Validate fails with ErrInvalidRange when to falls on an earlier day than from.
func Validate(from, to time.Time) error {
	if civil(to).Before(civil(from)) {
		return ErrInvalidRange
	}
	return nil
}

// Days expands the inclusive range into one value per calendar day, each at
// midnight in from's location. The range is never reordered.
func Days(from, to time.Time) ([]time.Time, error) {
	if err := Validate(from, to); err != nil {
		return nil, err
	}

	start := Normalize(from)
	n := Count(from, to)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days, nil
}

// Count returns the number of calendar days in the inclusive range, or 0 when
// the range is inverted.
func Count(from, to time.Time) int {
	start, end := civil(from), civil(to)
	if end.Before(start) {
		return 0
	}
	// Unix seconds: Duration overflows after ~292 years
	return int((end.Unix()-start.Unix())/secondsPerDay) + 1
}

// Contains reports whether date falls on or between from and to. Both bounds
// are inclusive.
func Contains(date, from, to time.Time) bool {
	d := civil(date).UnixMilli()
	return d >= civil(from).UnixMilli() && d <= civil(to).UnixMilli()
}

// Overlaps reports whether two inclusive ranges share at least one day.
func Overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !civil(aTo).Before(civil(bFrom)) && !civil(bTo).Before(civil(aFrom))
}
