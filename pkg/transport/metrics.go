package transport

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects request metrics. A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	redirects prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the transport collectors and registers them with reg.
// Collectors already registered by an earlier call are reused, so several
// clients can share one registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "peopledoc",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total API requests by method and status class.",
			},
			[]string{"method", "status_class"},
		),
		redirects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "peopledoc",
				Subsystem: "client",
				Name:      "redirects_total",
				Help:      "Total redirects followed.",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "peopledoc",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds, redirects included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	if reg != nil {
		m.requests = register(reg, m.requests)
		m.redirects = register(reg, m.redirects)
		m.duration = register(reg, m.duration)
	}
	return m
}

// register adds c to reg, or returns the equivalent collector registered
// before it. Any other registration error panics like MustRegister.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}

func (m *Metrics) observe(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) redirect() {
	if m == nil {
		return
	}
	m.redirects.Inc()
}

// statusClass maps 404 to "4xx". Status 0 means no response.
func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
