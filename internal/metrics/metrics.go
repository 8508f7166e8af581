package metrics

import (
	"strconv"
	"time"

	"chess-explorer/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Provider interface {
	ObserveFetch(route string, status int, duration time.Duration)
	CellHit(group string)
	CellMiss(group string)
	EntityCreated(kind string)
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
}

type Metrics struct {
	fetchTotal      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	cellLookups     *prometheus.CounterVec
	entities        *prometheus.GaugeVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. A disabled configuration yields a
// provider that records nothing.
func New(cfg *config.Config, reg *prometheus.Registry) Provider {
	if !cfg.MetricsEnabled {
		return &noopMetrics{}
	}

	factory := promauto.With(reg)
	return &Metrics{
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chess_explorer_fetch_total",
			Help: "Total number of chess.com API calls",
		}, []string{"route", "status"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chess_explorer_fetch_duration_seconds",
			Help:    "chess.com API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		cellLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chess_explorer_cell_lookups_total",
			Help: "Cached attribute reads by group and outcome",
		}, []string{"group", "outcome"}),

		entities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chess_explorer_entities_total",
			Help: "Entities held by the identity cache; never evicted",
		}, []string{"kind"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chess_explorer_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chess_explorer_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) ObserveFetch(route string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.fetchTotal.WithLabelValues(route, label).Inc()
	m.fetchDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) CellHit(group string) {
	m.cellLookups.WithLabelValues(group, "hit").Inc()
}

func (m *Metrics) CellMiss(group string) {
	m.cellLookups.WithLabelValues(group, "miss").Inc()
}

func (m *Metrics) EntityCreated(kind string) {
	m.entities.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *Metrics) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

type noopMetrics struct{}

func (n *noopMetrics) ObserveFetch(_ string, _ int, _ time.Duration)    {}
func (n *noopMetrics) CellHit(_ string)                                 {}
func (n *noopMetrics) CellMiss(_ string)                                {}
func (n *noopMetrics) EntityCreated(_ string)                           {}
func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

// Noop returns a provider that records nothing.
func Noop() Provider {
	return &noopMetrics{}
}
