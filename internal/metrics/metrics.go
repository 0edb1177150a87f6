package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carbook"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	bookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_operations_total",
			Help:      "Booking lifecycle operations by kind and outcome.",
		},
		[]string{"op", "status"},
	)

	uploadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_upload_failures_total",
			Help:      "Best-effort image uploads that failed, by image kind.",
		},
		[]string{"kind"},
	)

	calendarCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_cache_lookups_total",
			Help:      "Calendar cache lookups by result.",
		},
		[]string{"result"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "PIN login attempts by outcome.",
		},
		[]string{"result"},
	)

	eventDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Outbound event deliveries by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookingOps, uploadFailures, calendarCache, loginAttempts, eventDeliveries)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(endpoint string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// IncBookingOp counts a terminal booking operation result.
func IncBookingOp(op, status string) {
	bookingOps.WithLabelValues(op, status).Inc()
}

func IncUploadFailure(kind string) {
	uploadFailures.WithLabelValues(kind).Inc()
}

func IncCalendarCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	calendarCache.WithLabelValues(result).Inc()
}

func IncLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// IncEventDelivery counts one delivery attempt: delivered, retry, dropped or dead_letter.
func IncEventDelivery(result string) {
	eventDeliveries.WithLabelValues(result).Inc()
}
