// Package availability derives which calendar days of a car are taken from
// its booking list. Nothing here is persisted: results are rebuilt from the
// authoritative bookings every time.
package availability

import (
	"sort"
	"time"

	"carbook/internal/daterange"
	"carbook/internal/models"
)

// DaySet is a set of calendar days keyed by YYYY-MM-DD.
type DaySet map[string]time.Time

func (s DaySet) Has(date time.Time) bool {
	_, ok := s[daterange.Key(date)]
	return ok
}

func (s DaySet) Len() int {
	return len(s)
}

// Sorted returns the days in ascending order.
func (s DaySet) Sorted() []time.Time {
	days := make([]time.Time, 0, len(s))
	for _, d := range s {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// BlockedDays is the union of every booking's days. Bookings with an inverted
// range are skipped.
func BlockedDays(bookings []*models.Booking) DaySet {
	set := make(DaySet)
	for _, b := range bookings {
		if b == nil {
			continue
		}
		days, err := daterange.Days(b.From, b.To)
		if err != nil {
			continue
		}
		for _, d := range days {
			key := daterange.Key(d)
			if _, ok := set[key]; !ok {
				set[key] = d
			}
		}
	}
	return set
}

// FindBookingForDate returns the first booking, in list order, covering date.
func FindBookingForDate(bookings []*models.Booking, date time.Time) *models.Booking {
	for _, b := range bookings {
		if b != nil && daterange.Contains(date, b.From, b.To) {
			return b
		}
	}
	return nil
}

// CalendarDays flattens the bookings into per-day entries, each tagged with
// the first booking covering it.
func CalendarDays(bookings []*models.Booking) []models.CalendarDay {
	blocked := BlockedDays(bookings).Sorted()
	out := make([]models.CalendarDay, 0, len(blocked))
	for _, d := range blocked {
		entry := models.CalendarDay{Date: daterange.Key(d)}
		if b := FindBookingForDate(bookings, d); b != nil {
			entry.BookingID = b.ID
		}
		out = append(out, entry)
	}
	return out
}
