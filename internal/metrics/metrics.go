package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for each connection test.
const (
	OutcomeVerified        = "verified"
	OutcomeSent            = "sent"
	OutcomeInvalid         = "invalid"
	OutcomeConnectionError = "connection_error"
	OutcomeSendError       = "send_error"
)

// Metrics groups the collectors exposed on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	connectionTests     *prometheus.CounterVec
	corsRejectsTotal    prometheus.Counter
}

// New registers the collectors on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		gatherer: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of processed HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"method", "path"}),
		connectionTests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connection_tests_total",
			Help: "Connection tests by protocol and outcome",
		}, []string{"protocol", "outcome"}),
		corsRejectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cors_rejects_total",
			Help: "CORS requests rejected because the origin is not allowed",
		}),
	}

	for _, c := range []prometheus.Collector{m.httpRequestsTotal, m.httpRequestDuration, m.connectionTests, m.corsRejectsTotal} {
		if err := registerCollector(registry, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func registerCollector(registry prometheus.Registerer, c prometheus.Collector) error {
	if err := registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if path == "" {
		path = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTest(protocol, outcome string) {
	if m == nil {
		return
	}
	m.connectionTests.WithLabelValues(protocol, outcome).Inc()
}

func (m *Metrics) ObserveCorsReject() {
	if m == nil {
		return
	}
	m.corsRejectsTotal.Inc()
}
