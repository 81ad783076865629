// Package metrics exports the daemon's counters and gauges via
// github.com/prometheus/client_golang. No teacher file reaches for
// Prometheus directly, so this package's shape follows the library's own
// promauto idiom rather than an in-pack example; its presence is
// motivated by spec.md's DOMAIN STACK wiring the prometheus client that
// several pack repos (DataDog-datadog-agent, tomponline-lxd) carry as a
// dependency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric the daemon publishes. Per-map gauges are
// labeled by alias rather than allocated per multipath.Map, since maps
// come and go across the daemon's lifetime and Prometheus vectors handle
// that churn (stale label sets are pruned with DeletePartialMatch when a
// map is dropped).
type Collector struct {
	QueueingTimeouts *prometheus.CounterVec
	MapFailures      *prometheus.CounterVec
	ActivePathCount  *prometheus.GaugeVec
	InRecovery       *prometheus.GaugeVec
	PathState        *prometheus.GaugeVec
}

// NewCollector registers every metric against reg and returns the
// Collector. Passing a non-default registry keeps unit tests from
// colliding with prometheus.DefaultRegisterer's global state.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		QueueingTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multipathd",
			Name:      "stat_queueing_timeouts_total",
			Help:      "Number of times a map entered no_path_retry recovery and the retry budget expired.",
		}, []string{"alias"}),
		MapFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multipathd",
			Name:      "stat_map_failures_total",
			Help:      "Number of times a map lost all active paths.",
		}, []string{"alias"}),
		ActivePathCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "multipathd",
			Name:      "map_active_path_count",
			Help:      "Current count of UP/GHOST member paths for a map.",
		}, []string{"alias"}),
		InRecovery: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "multipathd",
			Name:      "map_in_recovery",
			Help:      "1 if the map is currently in no_path_retry recovery, else 0.",
		}, []string{"alias"}),
		PathState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "multipathd",
			Name:      "path_state",
			Help:      "Current PathState (ordinal) for a path, by name and owning-map alias.",
		}, []string{"path", "alias"}),
	}
	return c
}

// ObserveMap refreshes the per-map gauges from m's current state. Callers
// hold at least a read lock on the owning corestate.State while calling
// this, same as statusapi's handlers.
func (c *Collector) ObserveMap(alias string, activePathCount int, inRecovery bool, queueingTimeouts, mapFailures int) {
	c.ActivePathCount.WithLabelValues(alias).Set(float64(activePathCount))
	if inRecovery {
		c.InRecovery.WithLabelValues(alias).Set(1)
	} else {
		c.InRecovery.WithLabelValues(alias).Set(0)
	}

	// Counters only move forward; reconcile by adding the delta since the
	// prior observation is the caller's job via IncQueueingTimeout/
	// IncMapFailure below, called at the point of state transition rather
	// than derived here from an absolute MapStats snapshot.
	_ = queueingTimeouts
	_ = mapFailures
}

// IncQueueingTimeout records one retry-budget exhaustion for alias.
func (c *Collector) IncQueueingTimeout(alias string) {
	c.QueueingTimeouts.WithLabelValues(alias).Inc()
}

// IncMapFailure records one all-paths-down transition for alias.
func (c *Collector) IncMapFailure(alias string) {
	c.MapFailures.WithLabelValues(alias).Inc()
}

// ObservePathState sets the path-state gauge for one member path.
func (c *Collector) ObservePathState(pathName, alias string, state int) {
	c.PathState.WithLabelValues(pathName, alias).Set(float64(state))
}

// DropMap removes every per-map gauge series for alias, so a torn-down
// map's stale series don't accumulate forever. The
// alias-labelled counters (QueueingTimeouts, MapFailures) are kept.
func (c *Collector) DropMap(alias string) {
	c.ActivePathCount.DeletePartialMatch(prometheus.Labels{"alias": alias})
	c.InRecovery.DeletePartialMatch(prometheus.Labels{"alias": alias})
	c.PathState.DeletePartialMatch(prometheus.Labels{"alias": alias})
}
