package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"carbook/internal/events"
	"carbook/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("event queue is full")

const defaultDeadLetterKey = "carbook:events:deadletter"

// Sink delivers one event to an external system.
type Sink func(event *events.Event) error

// deadLetter is the JSON shape pushed to the dead-letter list.
type deadLetter struct {
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error"`
}

// EventWorker forwards bus events to a sink off the request path.
// Failed deliveries are retried with backoff and end up in a Redis list.
type EventWorker struct {
	sink          Sink
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan *events.Event
	deadLetterKey string
	logger        *zerolog.Logger
}

// NewEventWorker builds a worker with sane defaults. redisClient may be nil.
func NewEventWorker(sink Sink, redisClient *redis.Client, retry RetryPolicy, queueSize int, logger *zerolog.Logger) *EventWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 500 * time.Millisecond
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 30 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &EventWorker{
		sink:          sink,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan *events.Event, queueSize),
		deadLetterKey: defaultDeadLetterKey,
		logger:        logger,
	}
}

// Enqueue is an events.EventHandler. It never blocks the publisher.
func (w *EventWorker) Enqueue(event *events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		metrics.IncEventDelivery("dropped")
		return ErrQueueFull
	}
}

// Start delivers queued events until ctx is done.
func (w *EventWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Event worker started")
	defer w.logger.Info().Msg("Event worker stopped")

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case event := <-w.queue:
			w.deliver(ctx, event)
		}
	}
}

// drain logs what is left in the queue on shutdown.
func (w *EventWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			metrics.IncEventDelivery("dropped")
			w.logger.Warn().Str("event", event.Type).Msg("Event dropped on shutdown")
		default:
			return
		}
	}
}

func (w *EventWorker) deliver(ctx context.Context, event *events.Event) {
	var err error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if err = w.sink(event); err == nil {
			metrics.IncEventDelivery("delivered")
			return
		}
		if attempt == w.retryPolicy.MaxRetries {
			break
		}

		metrics.IncEventDelivery("retry")
		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(err).Str("event", event.Type).Int("attempt", attempt).Dur("delay", delay).Msg("Event delivery failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.pushDeadLetter(context.WithoutCancel(ctx), event, attempt, err)
			return
		case <-timer.C:
		}
	}
	w.pushDeadLetter(ctx, event, w.retryPolicy.MaxRetries, err)
}

func (w *EventWorker) pushDeadLetter(ctx context.Context, event *events.Event, attempts int, cause error) {
	metrics.IncEventDelivery("dead_letter")
	w.logger.Error().Err(cause).Str("event", event.Type).Int("attempts", attempts).Msg("Event moved to dead letter")
	if w.redis == nil {
		return
	}

	entry := deadLetter{
		Type:      event.Type,
		Key:       event.Key,
		Payload:   json.RawMessage(event.Payload),
		CreatedAt: event.CreatedAt,
		Attempts:  attempts,
		Error:     cause.Error(),
	}
	if !json.Valid(event.Payload) {
		entry.Payload = nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		w.logger.Error().Err(err).Str("event", event.Type).Msg("Encode dead letter failed")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Str("event", event.Type).Msg("Dead letter push failed")
	}
}

// DeadLetters returns up to limit dead-lettered events, newest first.
func (w *EventWorker) DeadLetters(ctx context.Context, limit int64) ([]string, error) {
	if w.redis == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	return w.redis.LRange(ctx, w.deadLetterKey, 0, limit-1).Result()
}
