package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	appointmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Name:      "appointments_created_total",
			Help:      "Booking requests accepted.",
		},
	)

	imageUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Name:      "image_uploads_total",
			Help:      "Gallery uploads by storage backend.",
		},
		[]string{"backend"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, appointmentsCreated, imageUploads)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncAppointmentCreated counts an accepted booking request.
func IncAppointmentCreated() {
	appointmentsCreated.Inc()
}

// IncImageUpload counts an upload that landed on the given backend.
func IncImageUpload(backend string) {
	imageUploads.WithLabelValues(backend).Inc()
}
