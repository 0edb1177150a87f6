package api

import (
	"errors"
	"net/http"

	"carbook/internal/auth"
	"carbook/internal/daterange"
	"carbook/internal/models"
	"carbook/internal/service"
	"carbook/internal/storage"
)

type imageInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// draftView hides image bytes of a stored draft.
type draftView struct {
	models.Draft
	PickupImage *imageInfo          `json:"pickup_image,omitempty"`
	DropImage   *imageInfo          `json:"drop_image,omitempty"`
	CanSubmit   bool                `json:"can_submit"`
	Dialog      service.DialogState `json:"dialog"`
}

func newDraftView(state *service.FormState) draftView {
	d := state.Draft()
	view := draftView{Draft: d, CanSubmit: state.CanSubmit(), Dialog: state.Dialog().State()}
	if d.PickupImage != nil {
		view.PickupImage = &imageInfo{Name: d.PickupImage.Name, Size: len(d.PickupImage.Data)}
	}
	if d.DropImage != nil {
		view.DropImage = &imageInfo{Name: d.DropImage.Name, Size: len(d.DropImage.Data)}
	}
	return view
}

func (s *HTTPServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	state, err := s.svc.Drafts.Get(r.Context(), userID, carID)
	if err != nil {
		s.draftFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(state))
}

func (s *HTTPServer) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
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
	userID, _ := auth.UserIDFromContext(r.Context())

	state, err := s.svc.Drafts.Apply(r.Context(), userID, carID, input)
	if err != nil {
		s.draftFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(state))
}

func (s *HTTPServer) handleResetDraft(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	state, err := s.svc.Drafts.Reset(r.Context(), userID, carID)
	if err != nil {
		s.draftFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(state))
}

func (s *HTTPServer) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := s.svc.Drafts.Discard(r.Context(), userID, carID); err != nil {
		s.draftFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	carID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	resp, err := s.svc.Drafts.Submit(r.Context(), userID, carID)
	if err != nil && !errors.Is(err, service.ErrInvalidDraft) && !errors.Is(err, service.ErrOperationInFlight) {
		s.logger.Error().Err(err).Int64("car_id", carID).Msg("Draft submit failed")
	}
	writeResponse(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleEditBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	state, err := s.svc.Drafts.Edit(r.Context(), userID, id)
	if err != nil {
		s.draftFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(state))
}

func (s *HTTPServer) draftFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, daterange.ErrInvalidRange):
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidDraft))
	case errors.Is(err, storage.ErrUnsupportedImage), errors.Is(err, storage.ErrImageTooLarge):
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidImage))
	default:
		s.logger.Error().Err(err).Msg("Draft operation failed")
		writeNotFoundOr500(w, err, "booking not found")
	}
}
