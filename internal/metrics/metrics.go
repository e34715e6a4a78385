// ABOUTME: Prometheus collectors for the portal's gate, logins, and hashing
// ABOUTME: Owns a private registry exposed through Handler()

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "portal"

// Login results recorded by LoginAttempt.
const (
	LoginSuccess   = "success"
	LoginFailure   = "failure"
	LoginThrottled = "throttled"
)

// Metrics holds the portal collectors.
type Metrics struct {
	registry *prometheus.Registry

	gateDecisions *prometheus.CounterVec
	logins        *prometheus.CounterVec
	registrations prometheus.Counter
	hashDuration  *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "gate_decisions_total",
			Help:      "Page gate decisions by route category and outcome",
		}, []string{"category", "outcome"}),

		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),

		registrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "registrations_total",
			Help:      "Accounts created through self-registration",
		}),

		hashDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "password_hash_duration_seconds",
			Help:      "Time spent in bcrypt, including waiting for a worker slot",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code",
		}, []string{"method", "code"}),
	}
}

// GateDecision records one gate decision.
func (m *Metrics) GateDecision(category, outcome string) {
	m.gateDecisions.WithLabelValues(category, outcome).Inc()
}

// LoginAttempt records a login result (LoginSuccess, LoginFailure, LoginThrottled).
func (m *Metrics) LoginAttempt(result string) {
	m.logins.WithLabelValues(result).Inc()
}

// Registration records a new self-registered account.
func (m *Metrics) Registration() {
	m.registrations.Inc()
}

// ObserveHash records how long a hash or verify call took.
func (m *Metrics) ObserveHash(op string, d time.Duration) {
	m.hashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument counts requests served by next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.httpRequests, next)
}
