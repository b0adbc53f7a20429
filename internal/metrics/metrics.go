// Package metrics exposes the service's Prometheus collectors.  A nil
// *Metrics is valid and records nothing, so components and tests can run
// without a registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	heartbeats     prometheus.Counter
	nearbyReturned prometheus.Histogram
	decisions      *prometheus.CounterVec
	cycleFull      prometheus.Counter
	pushes         *prometheus.CounterVec
	reveals        *prometheus.CounterVec
}

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tapin_heartbeats_total",
			Help: "Presence heartbeats accepted.",
		}),
		nearbyReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tapin_nearby_candidates",
			Help:    "Candidates returned per nearby request.",
			Buckets: []float64{0, 1, 2, 3},
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tapin_decisions_total",
			Help: "Reveal decisions by outcome.",
		}, []string{"outcome"}),
		cycleFull: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tapin_cycle_full_total",
			Help: "Slot requests rejected because the daily cycle was full.",
		}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tapin_push_total",
			Help: "Push notification attempts by result.",
		}, []string{"result"}),
		reveals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tapin_reveals_total",
			Help: "Conversations revealed, by policy.",
		}, []string{"policy"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.heartbeats, m.nearbyReturned, m.decisions, m.cycleFull, m.pushes, m.reveals,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Heartbeat() {
	if m != nil {
		m.heartbeats.Inc()
	}
}

func (m *Metrics) NearbyReturned(n int) {
	if m != nil {
		m.nearbyReturned.Observe(float64(n))
	}
}

func (m *Metrics) Decision(outcome string) {
	if m != nil {
		m.decisions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) CycleFull() {
	if m != nil {
		m.cycleFull.Inc()
	}
}

// Push records one delivery attempt; result is "sent", "queued" or "failed".
func (m *Metrics) Push(result string) {
	if m != nil {
		m.pushes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Reveal(policy string) {
	if m != nil {
		m.reveals.WithLabelValues(policy).Inc()
	}
}
