package models

import (
	"fmt"
	"time"
)

type Booking struct {
	ID             int64      `json:"id,omitempty"`
	CarID          int64      `json:"car_id,omitempty"`
	From           time.Time  `json:"from"`
	To             time.Time  `json:"to"`
	Description    string     `json:"description"`
	Summary        string     `json:"summary"`
	PickupImage    *ImageFile `json:"-"`
	PickupImageURL string     `json:"pickup_image_url"`
	DropImage      *ImageFile `json:"-"`
	DropImageURL   string     `json:"drop_image_url"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BookingPatch carries the fields an edit may change. Image URLs are written
// back as given unless a new image replaces them.
type BookingPatch struct {
	ID             int64      `json:"id"`
	CarID          int64      `json:"car_id"`
	Description    string     `json:"description"`
	Summary        string     `json:"summary"`
	Range          *DateRange `json:"range,omitempty"`
	PickupImage    *ImageFile `json:"-"`
	PickupImageURL string     `json:"pickup_image_url"`
	DropImage      *ImageFile `json:"-"`
	DropImageURL   string     `json:"drop_image_url"`
}

// BookingUpdate is the column set written by the record store on update.
type BookingUpdate struct {
	Description    string
	Summary        string
	Range          *DateRange
	PickupImageURL string
	DropImageURL   string
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ShareText renders the plain-text message used when a booking is shared to a messenger.
func (b *Booking) ShareText() string {
	return fmt.Sprintf("Description:\n%s\n\nSummary:\n%s\n\nDates:\n%s - %s",
		b.Description, b.Summary, b.From.Format(DateLayout), b.To.Format(DateLayout))
}

// CalendarDay is a single blocked day together with the booking covering it.
type CalendarDay struct {
	Date      string `json:"date"`
	BookingID int64  `json:"booking_id"`
}

type Calendar struct {
	CarID       int64         `json:"car_id"`
	Bookings    []*Booking    `json:"bookings"`
	BlockedDays []CalendarDay `json:"blocked_days"`
}
