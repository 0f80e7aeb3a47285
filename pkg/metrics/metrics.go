package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for the linking flow and provider calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	logins       *prometheus.CounterVec
	apiAttempts  *prometheus.CounterVec
	apiCalls     *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	gatherer     prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with registry.
// If registry is nil a fresh one is used.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "social_post",
				Subsystem: "login",
				Name:      "callbacks_total",
				Help:      "OAuth2 callbacks by provider and result",
			},
			[]string{"provider", "result"},
		),
		apiAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "social_post",
				Subsystem: "api",
				Name:      "attempts_total",
				Help:      "Individual provider API attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "social_post",
				Subsystem: "api",
				Name:      "calls_total",
				Help:      "Provider API invocations by final result",
			},
			[]string{"provider", "result"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "social_post",
				Subsystem: "api",
				Name:      "call_duration_seconds",
				Help:      "Duration of provider API invocations including retries",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		gatherer: registry,
	}

	registry.MustRegister(m.logins, m.apiAttempts, m.apiCalls, m.callDuration)
	return m
}

// RecordLogin counts a finished callback. result is "done" or an error code.
func (m *Metrics) RecordLogin(provider, result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(provider, result).Inc()
}

// RecordAttempt counts one HTTP attempt against the provider API.
func (m *Metrics) RecordAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.apiAttempts.WithLabelValues(provider, outcome).Inc()
}

// RecordCall counts a finished invocation and its total duration.
func (m *Metrics) RecordCall(provider, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(provider, result).Inc()
	m.callDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// LoginCounter exposes the login counter for assertions
func (m *Metrics) LoginCounter() *prometheus.CounterVec {
	return m.logins
}

// AttemptCounter exposes the attempt counter for assertions
func (m *Metrics) AttemptCounter() *prometheus.CounterVec {
	return m.apiAttempts
}

// CallCounter exposes the call counter for assertions
func (m *Metrics) CallCounter() *prometheus.CounterVec {
	return m.apiCalls
}
