package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"carbook/internal/models"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated = "booking_created"
	EventBookingUpdated = "booking_updated"
	EventBookingDeleted = "booking_deleted"
	EventCarCreated     = "car_created"
	EventCarUpdated     = "car_updated"
	EventCarDeleted     = "car_deleted"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	CarID       int64     `json:"car_id"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Description string    `json:"description,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	ChangedByID int64     `json:"changed_by_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewBookingPayload(b *models.Booking, changedBy int64) BookingEventPayload {
	p := BookingEventPayload{
		BookingID:   b.ID,
		CarID:       b.CarID,
		Description: b.Description,
		Summary:     b.Summary,
		ChangedByID: changedBy,
		OccurredAt:  time.Now().UTC(),
	}
	if !b.From.IsZero() {
		p.From = b.From.Format(models.DateLayout)
	}
	if !b.To.IsZero() {
		p.To = b.To.Format(models.DateLayout)
	}
	return p
}

func (p BookingEventPayload) EventKey() string {
	return fmt.Sprintf("car-%d", p.CarID)
}

type CarEventPayload struct {
	CarID      int64     `json:"car_id"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p CarEventPayload) EventKey() string {
	return fmt.Sprintf("car-%d", p.CarID)
}

// Keyed payloads choose the partition key of the event.
type Keyed interface {
	EventKey() string
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	wildcard    []EventHandler
	logger      *zerolog.Logger
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus. Handler errors are logged when logger is set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers[event.Type])+len(b.wildcard))
	handlers = append(handlers, b.subscribers[event.Type]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Handlers run synchronously; caller decides concurrency model.
	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("Event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	event := Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}
	if k, ok := payload.(Keyed); ok {
		event.Key = k.EventKey()
	}
	return event, nil
}
