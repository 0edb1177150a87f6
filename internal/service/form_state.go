package service

import (
	"strings"
	"time"

	"carbook/internal/daterange"
	"carbook/internal/models"
	"carbook/internal/storage"
)

// ComputeValidity reports whether a draft may be submitted: description,
// summary and a date range must all be present.
func ComputeValidity(d models.Draft) bool {
	return strings.TrimSpace(d.Description) != "" &&
		strings.TrimSpace(d.Summary) != "" &&
		d.DateRange != nil
}

// FormState is the editable booking draft behind a booking dialog. Every
// mutation recomputes the validity flag.
type FormState struct {
	draft  models.Draft
	dialog *Dialog
}

func NewFormState(userID, carID int64) *FormState {
	return &FormState{
		draft:  models.Draft{UserID: userID, CarID: carID},
		dialog: NewDialog(),
	}
}

// FormStateFromDraft resumes a persisted draft.
func FormStateFromDraft(d models.Draft) *FormState {
	f := &FormState{draft: d, dialog: NewDialog()}
	f.recompute()
	return f
}

func (f *FormState) recompute() {
	f.draft.IsValid = ComputeValidity(f.draft)
}

// Draft returns a copy of the current draft.
func (f *FormState) Draft() models.Draft {
	return f.draft
}

func (f *FormState) IsValid() bool {
	return f.draft.IsValid
}

func (f *FormState) Dialog() *Dialog {
	return f.dialog
}

// Attach binds the form to a shared dialog.
func (f *FormState) Attach(d *Dialog) {
	if d != nil {
		f.dialog = d
	}
}

// CanSubmit is false while the draft is invalid or an operation is in flight.
func (f *FormState) CanSubmit() bool {
	return f.draft.IsValid && f.dialog.State() == DialogIdle
}

// SelectRange sets the booking dates, truncated to calendar days.
func (f *FormState) SelectRange(from, to time.Time) error {
	if err := daterange.Validate(from, to); err != nil {
		return err
	}
	f.draft.DateRange = &models.DateRange{From: daterange.Normalize(from), To: daterange.Normalize(to)}
	f.recompute()
	return nil
}

func (f *FormState) ClearRange() {
	f.draft.DateRange = nil
	f.recompute()
}

func (f *FormState) SetDescription(s string) {
	f.draft.Description = strings.TrimSpace(s)
	f.recompute()
}

func (f *FormState) SetSummary(s string) {
	f.draft.Summary = strings.TrimSpace(s)
	f.recompute()
}

// SetPickupImage selects a new pickup photo; nil clears the selection.
func (f *FormState) SetPickupImage(img *models.ImageFile) error {
	if img != nil {
		if err := storage.ValidateImage(img); err != nil {
			return err
		}
	}
	f.draft.PickupImage = img
	f.recompute()
	return nil
}

// SetDropImage selects a new drop photo; nil clears the selection.
func (f *FormState) SetDropImage(img *models.ImageFile) error {
	if img != nil {
		if err := storage.ValidateImage(img); err != nil {
			return err
		}
	}
	f.draft.DropImage = img
	f.recompute()
	return nil
}

// Reset clears notes and image selections but keeps the selected dates.
func (f *FormState) Reset() {
	f.draft.Description = ""
	f.draft.Summary = ""
	f.draft.PickupImage = nil
	f.draft.DropImage = nil
	f.recompute()
}

// LoadBooking replaces the draft with an existing booking so it can be edited.
// Stored image URLs are carried so an edit without new photos keeps them.
func (f *FormState) LoadBooking(b *models.Booking) {
	f.draft = models.Draft{
		UserID:         f.draft.UserID,
		CarID:          b.CarID,
		BookingID:      b.ID,
		DateRange:      &models.DateRange{From: daterange.Normalize(b.From), To: daterange.Normalize(b.To)},
		Description:    b.Description,
		Summary:        b.Summary,
		PickupImageURL: b.PickupImageURL,
		DropImageURL:   b.DropImageURL,
	}
	f.recompute()
}

// Patch converts an edit draft into the update request for its booking.
func (f *FormState) Patch() models.BookingPatch {
	p := models.BookingPatch{
		ID:             f.draft.BookingID,
		CarID:          f.draft.CarID,
		Description:    f.draft.Description,
		Summary:        f.draft.Summary,
		PickupImage:    f.draft.PickupImage,
		PickupImageURL: f.draft.PickupImageURL,
		DropImage:      f.draft.DropImage,
		DropImageURL:   f.draft.DropImageURL,
	}
	if f.draft.DateRange != nil {
		r := *f.draft.DateRange
		p.Range = &r
	}
	return p
}
