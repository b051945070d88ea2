package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Command outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the bot's Prometheus collectors on a private registry.
type Metrics struct {
	Commands       *prometheus.CounterVec
	CommandLatency *prometheus.HistogramVec
	CacheRequests  *prometheus.CounterVec
	RateLimited    prometheus.Counter
	registry       *prometheus.Registry
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbot_commands_total",
				Help: "Telegram updates handled, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		CommandLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskbot_command_duration_seconds",
				Help:    "Handler latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbot_cache_requests_total",
				Help: "Task list cache lookups by result",
			},
			[]string{"result"},
		),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskbot_rate_limited_total",
			Help: "Updates dropped by the per-user rate limiter",
		}),
		registry: registry,
	}

	registry.MustRegister(m.Commands, m.CommandLatency, m.CacheRequests, m.RateLimited)
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

func (m *Metrics) ObserveCommand(command string, d time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandLatency.WithLabelValues(command).Observe(d.Seconds())
}

func (m *Metrics) CacheResult(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRateLimited() {
	m.RateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
