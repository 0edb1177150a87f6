package availability

import (
	"time"

	"carbook/internal/daterange"
	"carbook/internal/models"
)

type interval struct {
	from    time.Time
	to      time.Time
	booking *models.Booking
}

// Index answers membership questions against booking intervals directly, so
// the cost grows with the number of bookings rather than the days they span.
type Index struct {
	intervals []interval
}

func NewIndex(bookings []*models.Booking) *Index {
	idx := &Index{intervals: make([]interval, 0, len(bookings))}
	for _, b := range bookings {
		if b == nil || daterange.Validate(b.From, b.To) != nil {
			continue
		}
		idx.intervals = append(idx.intervals, interval{from: b.From, to: b.To, booking: b})
	}
	return idx
}

func (idx *Index) Len() int {
	return len(idx.intervals)
}

func (idx *Index) IsBlocked(date time.Time) bool {
	return idx.BookingFor(date) != nil
}

// BookingFor returns the first indexed booking covering date.
func (idx *Index) BookingFor(date time.Time) *models.Booking {
	for _, iv := range idx.intervals {
		if daterange.Contains(date, iv.from, iv.to) {
			return iv.booking
		}
	}
	return nil
}

// Conflicts lists bookings sharing a day with [from, to]. A booking whose ID
// equals excludeID is ignored, which lets an edit keep its own dates.
func (idx *Index) Conflicts(from, to time.Time, excludeID int64) []*models.Booking {
	var out []*models.Booking
	for _, iv := range idx.intervals {
		if excludeID != 0 && iv.booking.ID == excludeID {
			continue
		}
		if daterange.Overlaps(from, to, iv.from, iv.to) {
			out = append(out, iv.booking)
		}
	}
	return out
}
