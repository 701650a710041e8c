package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	_ port.PollObserver         = (*Metrics)(nil)
	_ port.ConfirmationObserver = (*Metrics)(nil)
)

const namespace = "checkout"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	polls         *prometheus.CounterVec
	confirmations *prometheus.CounterVec
}

// New registers the collectors in reg. Registering twice in the same
// registry panics.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests segmented by route, method and status code.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "ticks_total",
			Help:      "Confirmation poller ticks segmented by resulting state.",
		}, []string{"state"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "confirmations_total",
			Help:      "Terminal confirmation results segmented by state.",
		}, []string{"state"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.polls, m.confirmations,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObservePoll(s domain.PollState) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) ObserveConfirmation(s domain.PollState) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(s.String()).Inc()
}

// Handler serves the prometheus exposition of the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
