package storage

import (
	"bytes"
	"errors"
	"fmt"

	"carbook/internal/models"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type ImageKind string

const (
	ImagePickup ImageKind = "pickup"
	ImageDrop   ImageKind = "drop"
)

const PNGContentType = "image/png"

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds maximum size")
)

// BookingImagePath returns a fresh object key for a booking photo.
func BookingImagePath(carID int64, kind ImageKind) string {
	return fmt.Sprintf("public/car-%d-booking-%s-%s.png", carID, kind, uuid.NewString())
}

func CarImagePath() string {
	return fmt.Sprintf("public/car-%s.png", uuid.NewString())
}

// ValidateImage checks extension and size of a selected file.
func ValidateImage(img *models.ImageFile) error {
	if !img.IsImage() {
		return ErrUnsupportedImage
	}
	if len(img.Data) > models.MaxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(img.Data))
	}
	return nil
}

// NormalizeImage decodes the upload, applies EXIF orientation, shrinks it to
// maxWidth when wider and re-encodes it as PNG.
func NormalizeImage(img *models.ImageFile, maxWidth int) ([]byte, error) {
	if err := ValidateImage(img); err != nil {
		return nil, err
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", img.Name, err)
	}

	if maxWidth > 0 && decoded.Bounds().Dx() > maxWidth {
		decoded = imaging.Resize(decoded, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode %s: %w", img.Name, err)
	}
	return buf.Bytes(), nil
}
