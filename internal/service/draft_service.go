package service

import (
	"context"
	"fmt"
	"time"

	"carbook/internal/domain"
	"carbook/internal/models"

	"github.com/rs/zerolog"
)

// DraftInput is a partial edit of a draft. Nil fields are left untouched.
type DraftInput struct {
	From        *time.Time
	To          *time.Time
	ClearRange  bool
	Description *string
	Summary     *string
	PickupImage *models.ImageFile
	DropImage   *models.ImageFile
}

// DraftService keeps the booking form of every (user, car) pair between
// requests and submits it through the booking service.
type DraftService struct {
	drafts   domain.DraftRepository
	bookings *BookingService
	dialogs  *DialogRegistry
	logger   *zerolog.Logger
}

func NewDraftService(drafts domain.DraftRepository, bookings *BookingService, logger *zerolog.Logger) *DraftService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DraftService{
		drafts:   drafts,
		bookings: bookings,
		dialogs:  NewDialogRegistry(),
		logger:   logger,
	}
}

// Get returns the stored form, or an empty one when nothing is saved.
func (s *DraftService) Get(ctx context.Context, userID, carID int64) (*FormState, error) {
	draft, err := s.drafts.GetDraft(ctx, userID, carID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	var state *FormState
	if draft == nil {
		state = NewFormState(userID, carID)
	} else {
		state = FormStateFromDraft(*draft)
	}
	state.Attach(s.dialogs.Get(userID, carID))
	return state, nil
}

// Apply merges input into the stored form and saves it.
func (s *DraftService) Apply(ctx context.Context, userID, carID int64, input DraftInput) (*FormState, error) {
	state, err := s.Get(ctx, userID, carID)
	if err != nil {
		return nil, err
	}

	switch {
	case input.ClearRange:
		state.ClearRange()
	case input.From != nil || input.To != nil:
		from, to := rangeOrCurrent(state, input.From, input.To)
		if err := state.SelectRange(from, to); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		state.SetDescription(*input.Description)
	}
	if input.Summary != nil {
		state.SetSummary(*input.Summary)
	}
	if input.PickupImage != nil {
		if err := state.SetPickupImage(input.PickupImage); err != nil {
			return nil, err
		}
	}
	if input.DropImage != nil {
		if err := state.SetDropImage(input.DropImage); err != nil {
			return nil, err
		}
	}

	return state, s.save(ctx, state)
}

// Reset clears text and images of the form, keeping its dates.
func (s *DraftService) Reset(ctx context.Context, userID, carID int64) (*FormState, error) {
	state, err := s.Get(ctx, userID, carID)
	if err != nil {
		return nil, err
	}
	state.Reset()
	return state, s.save(ctx, state)
}

// Edit loads an existing booking into the user's form for its car.
func (s *DraftService) Edit(ctx context.Context, userID, bookingID int64) (*FormState, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	state, err := s.Get(ctx, userID, booking.CarID)
	if err != nil {
		return nil, err
	}
	state.LoadBooking(booking)
	return state, s.save(ctx, state)
}

func (s *DraftService) Discard(ctx context.Context, userID, carID int64) error {
	return s.drafts.ClearDraft(ctx, userID, carID)
}

// Submit creates or updates a booking from the stored form. The form is
// cleared only after a successful submit.
func (s *DraftService) Submit(ctx context.Context, userID, carID int64) (models.Response, error) {
	state, err := s.Get(ctx, userID, carID)
	if err != nil {
		return models.Failure(models.MsgServerError), err
	}
	if !state.IsValid() {
		return models.Failure(models.MsgInvalidDraft), ErrInvalidDraft
	}

	draft := state.Draft()
	op := DialogCreating
	if draft.BookingID != 0 {
		op = DialogUpdating
	}

	resp, err := state.Dialog().Run(op, func() models.Response {
		if op == DialogUpdating {
			return s.bookings.Update(ctx, state.Patch())
		}
		return s.bookings.Create(ctx, draft, carID)
	})
	if err != nil {
		return resp, err
	}

	if resp.OK() {
		if err := s.drafts.ClearDraft(ctx, userID, carID); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Int64("car_id", carID).Msg("Failed to clear submitted draft")
		}
	}
	return resp, nil
}

// Delete removes a booking within the user's dialog for its car.
func (s *DraftService) Delete(ctx context.Context, userID int64, booking *models.Booking) (models.Response, error) {
	if booking == nil || booking.ID == 0 {
		return models.Failure(models.MsgInvalidID), ErrInvalidID
	}
	return s.dialogs.Get(userID, booking.CarID).Run(DialogDeleting, func() models.Response {
		return s.bookings.Delete(ctx, booking)
	})
}

func (s *DraftService) DialogState(userID, carID int64) DialogState {
	return s.dialogs.State(userID, carID)
}

func (s *DraftService) save(ctx context.Context, state *FormState) error {
	draft := state.Draft()
	if err := s.drafts.SaveDraft(ctx, &draft); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// rangeOrCurrent fills a missing end from the currently selected range; a
// single date selects a one-day range.
func rangeOrCurrent(state *FormState, from, to *time.Time) (time.Time, time.Time) {
	current := state.Draft().DateRange
	var f, t time.Time
	switch {
	case from != nil:
		f = *from
	case current != nil:
		f = current.From
	}
	switch {
	case to != nil:
		t = *to
	case current != nil:
		t = current.To
	}
	if f.IsZero() {
		f = t
	}
	if t.IsZero() {
		t = f
	}
	return f, t
}
