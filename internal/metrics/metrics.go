// Package metrics exposes Prometheus metrics for device authorization and
// friends operations
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "friendsweep"

// Collector records outcomes reported by the device flow and the friends
// coordinator
type Collector struct {
	polls              *prometheus.CounterVec
	resolutions        *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	removals           *prometheus.CounterVec
	removedFriends     prometheus.Counter
	restores           *prometheus.CounterVec
	revokeFailures     prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_polls_total",
			Help:      "Token polls by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_authorizations_total",
			Help:      "Finished device authorization attempts by final state.",
		}, []string{"state"}),
		resolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "device_authorization_duration_seconds",
			Help:      "Time from first poll to the final state.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removal_batches_total",
			Help:      "Bulk removal batches by outcome.",
		}, []string{"outcome"}),
		removedFriends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "friends_removed_total",
			Help:      "Friends removed in fully successful batches.",
		}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Restore requests by outcome.",
		}, []string{"outcome"}),
		revokeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_revoke_failures_total",
			Help:      "Platform session revocations that failed during logout.",
		}),
	}

	reg.MustRegister(
		c.polls,
		c.resolutions,
		c.resolutionDuration,
		c.removals,
		c.removedFriends,
		c.restores,
		c.revokeFailures,
	)

	return c
}

// ObservePoll counts one token poll
func (c *Collector) ObservePoll(outcome string) {
	c.polls.WithLabelValues(outcome).Inc()
}

// ObserveResolution records how an attempt ended and how long it took
func (c *Collector) ObserveResolution(state string, elapsed time.Duration) {
	c.resolutions.WithLabelValues(state).Inc()
	c.resolutionDuration.Observe(elapsed.Seconds())
}

// ObserveRemoval counts a removal batch
func (c *Collector) ObserveRemoval(outcome string, friends int) {
	c.removals.WithLabelValues(outcome).Inc()
	if outcome == "removed" {
		c.removedFriends.Add(float64(friends))
	}
}

// ObserveRestore counts a restore request
func (c *Collector) ObserveRestore(outcome string) {
	c.restores.WithLabelValues(outcome).Inc()
}

// ObserveRevokeFailure matches the platform client's revocation hook
func (c *Collector) ObserveRevokeFailure(ctx context.Context, err error) {
	c.revokeFailures.Inc()
}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
