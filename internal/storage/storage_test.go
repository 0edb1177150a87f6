package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"regexp"
	"testing"

	"carbook/internal/config"
	"carbook/internal/models"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestBookingImagePath(t *testing.T) {
	re := regexp.MustCompile(`^public/car-7-booking-pickup-[0-9a-f-]{36}\.png$`)
	first := BookingImagePath(7, ImagePickup)
	second := BookingImagePath(7, ImagePickup)

	assert.Regexp(t, re, first)
	assert.NotEqual(t, first, second)
	assert.Contains(t, BookingImagePath(7, ImageDrop), "-booking-drop-")
	assert.Regexp(t, `^public/car-[0-9a-f-]{36}\.png$`, CarImagePath())
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage(&models.ImageFile{Name: "a.JPG", Data: []byte{1}}))
	assert.ErrorIs(t, ValidateImage(&models.ImageFile{Name: "a.gif", Data: []byte{1}}), ErrUnsupportedImage)
	assert.ErrorIs(t, ValidateImage(nil), ErrUnsupportedImage)

	big := &models.ImageFile{Name: "big.png", Data: make([]byte, models.MaxFileSize+1)}
	assert.ErrorIs(t, ValidateImage(big), ErrImageTooLarge)
}

func TestNormalizeImage(t *testing.T) {
	t.Run("ShrinksAndConvertsToPNG", func(t *testing.T) {
		out, err := NormalizeImage(&models.ImageFile{Name: "car.jpg", Data: jpegFixture(t, 400, 200)}, 100)
		require.NoError(t, err)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 100, cfg.Width)
		assert.Equal(t, 50, cfg.Height)
	})

	t.Run("KeepsSmallImages", func(t *testing.T) {
		out, err := NormalizeImage(&models.ImageFile{Name: "car.jpeg", Data: jpegFixture(t, 40, 30)}, 100)
		require.NoError(t, err)

		cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 40, cfg.Width)
	})

	t.Run("GarbageFails", func(t *testing.T) {
		_, err := NormalizeImage(&models.ImageFile{Name: "car.png", Data: []byte("not an image")}, 100)
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("http://cdn.local/")

	key, err := store.Upload(ctx, "/public/a.png", []byte("img"), PNGContentType)
	require.NoError(t, err)
	assert.Equal(t, "public/a.png", key)
	assert.Equal(t, "http://cdn.local/public/a.png", store.PublicURL(key))

	_, err = store.Upload(ctx, "public/a.png", []byte("other"), PNGContentType)
	assert.ErrorIs(t, err, ErrObjectExists, "overwrite disabled")

	data, ct, ok := store.Get("public/a.png")
	require.True(t, ok)
	assert.Equal(t, []byte("img"), data)
	assert.Equal(t, PNGContentType, ct)
	assert.Equal(t, 1, store.Len())
}

func TestNoopStore(t *testing.T) {
	_, err := NoopStore{}.Upload(context.Background(), "k", []byte("x"), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	_, err := NewClient(config.StorageConfig{Bucket: "b"}, &logger)
	assert.Error(t, err)
	_, err = NewClient(config.StorageConfig{Endpoint: "localhost:9000"}, &logger)
	assert.Error(t, err)

	c, err := NewClient(config.StorageConfig{
		Endpoint:  "http://localhost:9000",
		Bucket:    "cm-images",
		AccessKey: "minio",
		SecretKey: "minio123",
	}, &logger)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/cm-images/public/x.png", c.PublicURL("public/x.png"))

	c, err = NewClient(config.StorageConfig{
		Endpoint:      "s3.example.com",
		Bucket:        "cm-images",
		UseSSL:        true,
		PublicBaseURL: "https://cdn.example.com/",
	}, &logger)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cm-images/public/x.png", c.PublicURL("/public/x.png"))
}
