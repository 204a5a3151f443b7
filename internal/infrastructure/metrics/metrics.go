package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	syncItems        *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pod",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Outbound provider API calls by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pod",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Outbound provider API latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		syncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pod",
			Subsystem: "catalog",
			Name:      "sync_items_total",
			Help:      "Catalog items processed by sync, by result.",
		}, []string{"result"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pod",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order state transitions by target status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.providerRequests, m.providerLatency, m.syncItems, m.orderTransitions)
	return m
}

// ObserveProviderCall records one outbound call. status 0 means no response.
func (m *Metrics) ObserveProviderCall(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.providerLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// SyncItem records a single catalog item outcome ("synced" or "failed").
func (m *Metrics) SyncItem(result string) {
	if m == nil {
		return
	}
	m.syncItems.WithLabelValues(result).Inc()
}

// OrderTransition records an order entering status.
func (m *Metrics) OrderTransition(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}
