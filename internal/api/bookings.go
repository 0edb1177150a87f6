package api

import (
	"errors"
	"net/http"
	"strconv"

	"carbook/internal/auth"
	"carbook/internal/daterange"
	"carbook/internal/models"
	"carbook/internal/service"
)

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	cal, err := s.svc.Bookings.Calendar(r.Context(), carID)
	if err != nil {
		s.logger.Error().Err(err).Int64("car_id", carID).Msg("Calendar load failed")
		writeJSON(w, http.StatusInternalServerError, models.Failure(models.MsgServerError))
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (s *HTTPServer) handleResolveDate(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	date, err := daterange.Parse(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	bookings, err := s.svc.Bookings.ListBookings(r.Context(), carID)
	if err != nil {
		s.logger.Error().Err(err).Int64("car_id", carID).Msg("Calendar load failed")
		writeJSON(w, http.StatusInternalServerError, models.Failure(models.MsgServerError))
		return
	}

	booking := s.svc.Bookings.ResolveClickedDate(bookings, date)
	if booking == nil {
		writeError(w, http.StatusNotFound, "date is free")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleConflicts(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	q := r.URL.Query()
	from, err := daterange.Parse(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := daterange.Parse(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}
	var exclude int64
	if raw := q.Get("exclude"); raw != "" {
		if exclude, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid exclude id")
			return
		}
	}

	conflicts, err := s.svc.Bookings.Conflicts(r.Context(), carID, from, to, exclude)
	if errors.Is(err, daterange.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.Failure(models.MsgServerError))
		return
	}
	if conflicts == nil {
		conflicts = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": len(conflicts) == 0, "conflicts": conflicts})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	input, err := readDraftInput(w, r)
	if err != nil {
		writeInputError(w, err)
		return
	}

	form := service.NewFormState(0, carID)
	if input.From != nil {
		to := input.From
		if input.To != nil {
			to = input.To
		}
		if err := form.SelectRange(*input.From, *to); err != nil {
			writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidDraft))
			return
		}
	}
	if input.Description != nil {
		form.SetDescription(*input.Description)
	}
	if input.Summary != nil {
		form.SetSummary(*input.Summary)
	}
	if err := form.SetPickupImage(input.PickupImage); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidImage))
		return
	}
	if err := form.SetDropImage(input.DropImage); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidImage))
		return
	}

	writeResponse(w, http.StatusCreated, s.svc.Bookings.Create(r.Context(), form.Draft(), carID))
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleShareBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(booking.ShareText()))
}

// handleUpdateBooking writes an edit. Image URL fields that are not sent keep
// the stored values; an empty value clears them.
func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	input, err := readDraftInput(w, r)
	if err != nil {
		writeInputError(w, err)
		return
	}

	patch := models.BookingPatch{
		ID:             booking.ID,
		CarID:          booking.CarID,
		Description:    booking.Description,
		Summary:        booking.Summary,
		PickupImage:    input.PickupImage,
		PickupImageURL: booking.PickupImageURL,
		DropImage:      input.DropImage,
		DropImageURL:   booking.DropImageURL,
	}
	if input.Description != nil {
		patch.Description = *input.Description
	}
	if input.Summary != nil {
		patch.Summary = *input.Summary
	}
	if v, sent := formValue(r, "pickup_image_url"); sent {
		patch.PickupImageURL = v
	}
	if v, sent := formValue(r, "drop_image_url"); sent {
		patch.DropImageURL = v
	}
	if input.From != nil || input.To != nil {
		from, to := booking.From, booking.To
		if input.From != nil {
			from = *input.From
		}
		if input.To != nil {
			to = *input.To
		}
		patch.Range = &models.DateRange{From: from, To: to}
	}

	writeResponse(w, http.StatusOK, s.svc.Bookings.Update(r.Context(), patch))
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}

	// car_id привязывает удаление к диалогу машины; без него берём из хранилища
	booking := &models.Booking{ID: id}
	if raw := r.URL.Query().Get("car_id"); raw != "" {
		if booking.CarID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid car_id")
			return
		}
	} else if stored, err := s.svc.Bookings.GetBooking(r.Context(), id); err == nil {
		booking = stored
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	// ErrOperationInFlight уже отражён в resp
	resp, _ := s.svc.Drafts.Delete(r.Context(), userID, booking)
	writeResponse(w, http.StatusOK, resp)
}

func (s *HTTPServer) loadBooking(w http.ResponseWriter, r *http.Request) (*models.Booking, bool) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return nil, false
	}
	booking, err := s.svc.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeNotFoundOr500(w, err, "booking not found")
		return nil, false
	}
	return booking, true
}

// readDraftInput parses the booking form fields shared by create, update and draft edits.
func readDraftInput(w http.ResponseWriter, r *http.Request) (service.DraftInput, error) {
	var input service.DraftInput
	if err := parseForm(w, r); err != nil {
		return input, err
	}

	var err error
	if input.From, err = formDate(r, "from"); err != nil {
		return input, err
	}
	if input.To, err = formDate(r, "to"); err != nil {
		return input, err
	}
	if v, sent := formValue(r, "description"); sent {
		input.Description = &v
	}
	if v, sent := formValue(r, "summary"); sent {
		input.Summary = &v
	}
	if v, _ := formValue(r, "clear_range"); v == "true" || v == "1" {
		input.ClearRange = true
	}
	if input.PickupImage, err = readImage(r, "pickup_image"); err != nil {
		return input, err
	}
	if input.DropImage, err = readImage(r, "drop_image"); err != nil {
		return input, err
	}
	return input, nil
}

func writeInputError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidImage) {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidImage))
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
