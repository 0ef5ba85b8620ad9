// Package metrics owns the Prometheus collectors of the API and the worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Event publish outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics holds every collector. Each instance has its own registry so tests
// can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	movementsRecorded *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	nearLimitAlerts   prometheus.Counter
	remindersEmitted  *prometheus.CounterVec
	suspiciousHits    *prometheus.CounterVec
	rateLimited       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gastos_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		movementsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_movements_recorded_total",
				Help: "Movements stored, by type.",
			},
			[]string{"type"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_events_published_total",
				Help: "Movement events handed to the broker, by outcome.",
			},
			[]string{"outcome"},
		),
		nearLimitAlerts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gastos_budget_near_limit_alerts_total",
				Help: "Times the monthly budget was found at or past its alert threshold.",
			},
		),
		remindersEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_reminders_emitted_total",
				Help: "Reminders emitted, by kind.",
			},
			[]string{"kind"},
		),
		suspiciousHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_http_suspicious_requests_total",
				Help: "Requests flagged by the detector, by reason.",
			},
			[]string{"reason"},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gastos_http_rate_limited_total",
				Help: "Requests rejected by the per-client rate limit.",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) IncMovementRecorded(movementType string) {
	m.movementsRecorded.WithLabelValues(movementType).Inc()
}

func (m *Metrics) IncEventPublished(outcome string) {
	m.eventsPublished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncNearLimitAlert() {
	m.nearLimitAlerts.Inc()
}

func (m *Metrics) IncReminderEmitted(kind string) {
	m.remindersEmitted.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSuspiciousRequest(reason string) {
	m.suspiciousHits.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncRateLimited() {
	m.rateLimited.Inc()
}

// MovementsRecorded returns the current counter value for a movement type.
func (m *Metrics) MovementsRecorded(movementType string) float64 {
	return counterValue(m.movementsRecorded.WithLabelValues(movementType))
}

func (m *Metrics) EventsPublished(outcome string) float64 {
	return counterValue(m.eventsPublished.WithLabelValues(outcome))
}

func (m *Metrics) NearLimitAlerts() float64 {
	return counterValue(m.nearLimitAlerts)
}

func (m *Metrics) RemindersEmitted(kind string) float64 {
	return counterValue(m.remindersEmitted.WithLabelValues(kind))
}

func (m *Metrics) SuspiciousRequests(reason string) float64 {
	return counterValue(m.suspiciousHits.WithLabelValues(reason))
}

func (m *Metrics) RateLimited() float64 {
	return counterValue(m.rateLimited)
}

func counterValue(c prometheus.Counter) float64 {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	if out.Counter != nil && out.Counter.Value != nil {
		return *out.Counter.Value
	}
	return 0
}
