package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"carbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventBookingCreated, map[string]string{"foo": "bar"})
	require.NoError(t, err)

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventBookingCreated, received.Type)
	assert.Empty(t, received.Key)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(received.Payload, &decoded))
	assert.Equal(t, "bar", decoded["foo"])
}

func TestEventBusSubscribers(t *testing.T) {
	logger := zerolog.Nop()
	bus := NewEventBus(&logger)
	var typed, all int

	bus.Subscribe(EventBookingDeleted, func(_ *Event) error { typed++; return errors.New("ignored") })
	bus.SubscribeAll(func(_ *Event) error { all++; return nil })

	bus.Publish(&Event{Type: EventBookingDeleted})
	bus.Publish(&Event{Type: EventCarCreated})

	assert.Equal(t, 1, typed, "failing handler does not stop others")
	assert.Equal(t, 2, all)
}

func TestEventBusNil(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, nil))

	NewEventBus(nil).Publish(&Event{Type: "unknown"})
}

func TestNewJSONEvent(t *testing.T) {
	booking := &models.Booking{
		ID:          5,
		CarID:       12,
		From:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Description: "d",
	}

	event, err := NewJSONEvent(EventBookingUpdated, NewBookingPayload(booking, 3))
	require.NoError(t, err)
	assert.Equal(t, "car-12", event.Key)

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, int64(5), decoded.BookingID)
	assert.Equal(t, "2024-06-01", decoded.From)
	assert.Equal(t, "2024-06-03", decoded.To)
	assert.Equal(t, int64(3), decoded.ChangedByID)

	_, err = NewJSONEvent("bad", make(chan int))
	assert.Error(t, err)
}
