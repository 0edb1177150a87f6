package models

import (
	"path/filepath"
	"strings"
)

// ImageFile is an image selected by the user but not yet uploaded.
type ImageFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// IsImage reports whether the file name carries a png/jpg/jpeg extension.
func (f *ImageFile) IsImage() bool {
	if f == nil || f.Name == "" {
		return false
	}
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), ".")) {
	case "png", "jpg", "jpeg":
		return true
	}
	return false
}

// Draft is the in-progress booking a user is composing or editing.
type Draft struct {
	UserID         int64      `json:"user_id"`
	CarID          int64      `json:"car_id"`
	BookingID      int64      `json:"booking_id,omitempty"`
	DateRange      *DateRange `json:"date_range,omitempty"`
	Description    string     `json:"description"`
	Summary        string     `json:"summary"`
	PickupImage    *ImageFile `json:"pickup_image,omitempty"`
	PickupImageURL string     `json:"pickup_image_url,omitempty"`
	DropImage      *ImageFile `json:"drop_image,omitempty"`
	DropImageURL   string     `json:"drop_image_url,omitempty"`
	IsValid        bool       `json:"is_valid"`
}

// Response is the uniform result of every mutating operation.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func Success(message string) Response {
	return Response{Status: StatusSuccess, Message: message}
}

func Failure(message string) Response {
	return Response{Status: StatusError, Message: message}
}

func (r Response) OK() bool {
	return r.Status == StatusSuccess
}
