package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry      *prometheus.Registry
	signs         *prometheus.CounterVec
	verifications *prometheus.CounterVec
	emails        *prometheus.CounterVec
	tracks        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &metrics{
		registry: registry,
		signs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emindy",
			Name:      "sign_requests_total",
			Help:      "Signed result link requests by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emindy",
			Name:      "result_views_total",
			Help:      "Result page views by verification outcome.",
		}, []string{"outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emindy",
			Name:      "email_requests_total",
			Help:      "Summary email requests by outcome.",
		}, []string{"outcome"}),
		tracks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emindy",
			Name:      "track_events_total",
			Help:      "Analytics events by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "emindy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	registry.MustRegister(m.signs, m.verifications, m.emails, m.tracks, m.duration)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observe(route string, started time.Time) {
	m.duration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}
