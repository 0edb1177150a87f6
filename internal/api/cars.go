package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"carbook/internal/database"
	"carbook/internal/export"
	"carbook/internal/models"
)

func writeNotFoundOr500(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	writeJSON(w, http.StatusInternalServerError, models.Failure(models.MsgServerError))
}

func (s *HTTPServer) handleListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.svc.Cars.ListCars(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("List cars failed")
		writeJSON(w, http.StatusInternalServerError, models.Failure(models.MsgServerError))
		return
	}
	if cars == nil {
		cars = []*models.Car{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cars": cars})
}

func (s *HTTPServer) handleGetCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	car, err := s.svc.Cars.GetCar(r.Context(), id)
	if err != nil {
		writeNotFoundOr500(w, err, "car not found")
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (s *HTTPServer) handleCreateCar(w http.ResponseWriter, r *http.Request) {
	car, err := readCar(w, r)
	if err != nil {
		writeCarInputError(w, err)
		return
	}
	car.ID = 0
	resp := s.svc.Cars.CreateCar(r.Context(), car)
	if resp.OK() {
		writeJSON(w, http.StatusCreated, map[string]any{"status": resp.Status, "message": resp.Message, "car": car})
		return
	}
	writeResponse(w, http.StatusCreated, resp)
}

func (s *HTTPServer) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	car, err := readCar(w, r)
	if err != nil {
		writeCarInputError(w, err)
		return
	}
	car.ID = id
	writeResponse(w, http.StatusOK, s.svc.Cars.UpdateCar(r.Context(), car))
}

func (s *HTTPServer) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	writeResponse(w, http.StatusOK, s.svc.Cars.DeleteCar(r.Context(), id))
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidID))
		return
	}
	car, err := s.svc.Cars.GetCar(r.Context(), id)
	if err != nil {
		writeNotFoundOr500(w, err, "car not found")
		return
	}
	cal, err := s.svc.Bookings.Calendar(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Int64("car_id", id).Msg("Calendar load failed")
		writeJSON(w, http.StatusInternalServerError, models.Failure(models.MsgServerError))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(car)+`"`)
	if err := s.svc.Exporter.WriteCalendar(w, car, cal); err != nil {
		s.logger.Error().Err(err).Int64("car_id", id).Msg("Export failed")
	}
}

// readCar accepts a JSON body, or a multipart form whose "data" field holds
// the JSON and whose "image" field holds the photo.
func readCar(w http.ResponseWriter, r *http.Request) (*models.Car, error) {
	car := &models.Car{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, car); err != nil {
			return nil, err
		}
		return car, nil
	}

	if err := parseForm(w, r); err != nil {
		return nil, err
	}
	if raw, ok := formValue(r, "data"); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), car); err != nil {
			return nil, err
		}
	}
	img, err := readImage(r, "image")
	if err != nil {
		return nil, err
	}
	car.Image = img
	return car, nil
}

func writeCarInputError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidImage) {
		writeJSON(w, http.StatusBadRequest, models.Failure(models.MsgInvalidImage))
		return
	}
	writeError(w, http.StatusBadRequest, "invalid car payload")
}
