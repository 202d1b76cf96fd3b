package httpapp

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics lives on its own registry so several servers can coexist in one
// process.
type Metrics struct {
	registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Votes    *prometheus.CounterVec
	Follows  *prometheus.CounterVec
	Entities *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_http_requests_total",
				Help: "HTTP requests by route template and status code",
			},
			[]string{"route", "code"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forum_http_request_duration_seconds",
				Help:    "HTTP request latency by route template",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		Votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_votes_total",
				Help: "Successful vote casts and uncasts",
			},
			[]string{"kind", "action"},
		),
		Follows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_follows_total",
				Help: "Successful follows and unfollows",
			},
			[]string{"action"},
		),
		Entities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forum_entities",
				Help: "Stored rows per table, refreshed by the stats job",
			},
			[]string{"table"},
		),
	}

	m.registry.MustRegister(m.Requests)
	m.registry.MustRegister(m.Duration)
	m.registry.MustRegister(m.Votes)
	m.registry.MustRegister(m.Follows)
	m.registry.MustRegister(m.Entities)
	m.registry.MustRegister(collectors.NewGoCollector())

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
