package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestImageFile_IsImage(t *testing.T) {
	assert.True(t, (&ImageFile{Name: "pickup.png"}).IsImage())
	assert.True(t, (&ImageFile{Name: "DROP.JPG"}).IsImage())
	assert.True(t, (&ImageFile{Name: "a.b.jpeg"}).IsImage())
	assert.False(t, (&ImageFile{Name: "doc.pdf"}).IsImage())
	assert.False(t, (&ImageFile{Name: "noext"}).IsImage())
	assert.False(t, (&ImageFile{}).IsImage())

	var nilFile *ImageFile
	assert.False(t, nilFile.IsImage())
}

func TestBooking_ShareText(t *testing.T) {
	b := &Booking{
		Description: "Airport run",
		Summary:     "Full tank",
		From:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "Description:\nAirport run\n\nSummary:\nFull tank\n\nDates:\n2024-06-01 - 2024-06-03", b.ShareText())
}

func TestResponse(t *testing.T) {
	ok := Success(MsgBookingCreated)
	assert.True(t, ok.OK())
	assert.Equal(t, StatusSuccess, ok.Status)

	bad := Failure(MsgServerError)
	assert.False(t, bad.OK())
	assert.Equal(t, MsgServerError, bad.Message)
}
