// Package metrics holds the Prometheus collectors for the tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mapty"

// Rejection reasons used as label values.
const (
	ReasonInvalidInput = "invalid_input"
	ReasonNoLocation   = "no_location"
	ReasonNoPoint      = "no_point"
	ReasonStorage      = "storage"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	WorkoutsCreated     *prometheus.CounterVec
	SubmissionsRejected *prometheus.CounterVec
	SessionWorkouts     prometheus.Gauge
	RequestDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewTest returns Metrics backed by a private registry.
func NewTest() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WorkoutsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workouts_created_total",
			Help:      "Workouts added to a session, by kind.",
		}, []string{"kind"}),
		SubmissionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Form submissions that did not produce a workout, by reason.",
		}, []string{"reason"}),
		SessionWorkouts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_workouts",
			Help:      "Workouts currently held by the session.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: g,
	}
}

func (m *Metrics) WorkoutCreated(kind string, total int) {
	if m == nil {
		return
	}
	m.WorkoutsCreated.WithLabelValues(kind).Inc()
	m.SessionWorkouts.Set(float64(total))
}

func (m *Metrics) SubmissionRejected(reason string) {
	if m == nil {
		return
	}
	m.SubmissionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
