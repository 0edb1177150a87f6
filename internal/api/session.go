package api

import (
	"errors"
	"net/http"

	"carbook/internal/auth"
	"carbook/internal/models"
)

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.svc.Auth.Login(r.Context(), body.PIN, clientKey(r))
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidPIN):
		writeJSON(w, http.StatusUnauthorized, models.Failure(models.MsgInvalidPIN))
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Login failed")
		writeJSON(w, http.StatusInternalServerError, models.Failure(models.MsgServerError))
		return
	}

	http.SetCookie(w, auth.SessionCookie(session.Token, session.ExpiresAt, s.cookieSecure))
	writeJSON(w, http.StatusOK, session)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, auth.ExpiredSessionCookie(s.cookieSecure))
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := s.svc.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		writeNotFoundOr500(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	writeResponse(w, http.StatusOK, s.svc.Users.UpdateProfile(r.Context(), userID, patch))
}
