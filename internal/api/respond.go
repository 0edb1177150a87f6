package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carbook/internal/daterange"
	"carbook/internal/models"
	"carbook/internal/storage"
)

// maxFormSize leaves room for two images plus text fields.
const maxFormSize = 2*models.MaxFileSize + 1<<20

var errInvalidImage = errors.New(models.MsgInvalidImage)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeResponse maps an operation result onto an HTTP status.
func writeResponse(w http.ResponseWriter, okStatus int, resp models.Response) {
	if resp.OK() {
		writeJSON(w, okStatus, resp)
		return
	}
	writeJSON(w, failureStatus(resp.Message), resp)
}

func failureStatus(message string) int {
	switch message {
	case models.MsgInvalidID, models.MsgInvalidDraft, models.MsgInvalidCar, models.MsgWeakPIN, models.MsgInvalidImage:
		return http.StatusBadRequest
	case models.MsgRangeConflict, models.MsgOperationActive:
		return http.StatusConflict
	case models.MsgInvalidPIN:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// parseForm accepts multipart and urlencoded bodies.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	err := r.ParseMultipartForm(maxFormSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formValue returns the trimmed value and whether the field was sent at all.
func formValue(r *http.Request, key string) (string, bool) {
	vals, ok := r.Form[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return strings.TrimSpace(vals[0]), true
}

func formDate(r *http.Request, key string) (*time.Time, error) {
	raw, ok := formValue(r, key)
	if !ok || raw == "" {
		return nil, nil
	}
	t, err := daterange.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}

// readImage loads an uploaded image field. A missing field yields nil.
func readImage(r *http.Request, field string) (*models.ImageFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, models.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	img := &models.ImageFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	if err := storage.ValidateImage(img); err != nil {
		return nil, errInvalidImage
	}
	return img, nil
}
