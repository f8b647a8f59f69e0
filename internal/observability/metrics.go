// Package observability holds the Prometheus instruments used by tasker.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the repository.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RemoteCalls        *prometheus.CounterVec
	CacheFallbacks     *prometheus.CounterVec
	CacheWriteFailures *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(namespace, reg, reg)
}

// NewMetricsWith registers the instruments on reg and serves them from g.
func NewMetricsWith(namespace string, reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RemoteCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Remote source calls by operation and outcome kind.",
		}, []string{"op", "outcome"}),
		CacheFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fallbacks_total",
			Help:      "Reads served from the local cache after a remote failure.",
		}, []string{"op"}),
		CacheWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_failures_total",
			Help:      "Best-effort cache writes that failed and were dropped.",
		}, []string{"op"}),
		gatherer: g,
	}
}

// ObserveRemote counts one remote call. outcome is "ok" or an error kind.
func (m *Metrics) ObserveRemote(op, outcome string) {
	if m == nil {
		return
	}
	m.RemoteCalls.WithLabelValues(op, outcome).Inc()
}

// ObserveFallback counts one read served from the cache.
func (m *Metrics) ObserveFallback(op string) {
	if m == nil {
		return
	}
	m.CacheFallbacks.WithLabelValues(op).Inc()
}

// ObserveCacheWriteFailure counts one dropped cache write.
func (m *Metrics) ObserveCacheWriteFailure(op string) {
	if m == nil {
		return
	}
	m.CacheWriteFailures.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
