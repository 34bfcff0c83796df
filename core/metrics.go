package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors exposed at the admin server's
// /metrics endpoint.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	mergeConflicts   prometheus.Counter
	watchSubscribers prometheus.Gauge
}

// NewMetrics constructs and registers the sync-store's collectors against
// reg. Passing prometheus.NewRegistry() (rather than the global default
// registry) keeps repeated construction in tests collision-free.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syncstore",
			Name:      "requests_total",
			Help:      "Total dispatched requests by action.",
		}, []string{"action"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "syncstore",
			Name:      "dispatch_duration_seconds",
			Help:      "Dispatch handler latency by action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		mergeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "syncstore",
			Name:      "merge_conflicts_total",
			Help:      "Total merge operations that ended in a Conflict.",
		}),
		watchSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "syncstore",
			Name:      "watch_subscribers",
			Help:      "Current number of active watch subscriptions.",
		}),
	}
	reg.MustRegister(m.requestsTotal, m.dispatchDuration, m.mergeConflicts, m.watchSubscribers)
	return m
}

// ObserveDispatch records one dispatched request's latency.
func (m *Metrics) ObserveDispatch(action Action, d time.Duration) {
	if m == nil {
		return
	}
	name := action.String()
	m.requestsTotal.WithLabelValues(name).Inc()
	m.dispatchDuration.WithLabelValues(name).Observe(d.Seconds())
}

// IncMergeConflict records one failed merge.
func (m *Metrics) IncMergeConflict() {
	if m == nil {
		return
	}
	m.mergeConflicts.Inc()
}

// SetWatchSubscribers sets the current subscriber gauge.
func (m *Metrics) SetWatchSubscribers(n int) {
	if m == nil {
		return
	}
	m.watchSubscribers.Set(float64(n))
}
