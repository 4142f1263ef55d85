// Package metrics holds the Prometheus collectors shared by the player components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moodradio"

var (
	DirectoryRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_requests_total",
		Help:      "Directory requests by mirror and outcome.",
	}, []string{"mirror", "outcome"})

	CandidateFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidate_failures_total",
		Help:      "Stations abandoned during playback, by reason.",
	}, []string{"reason"})

	VerifiedPromotions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verified_promotions_total",
		Help:      "Stations promoted to the verified tier.",
	})

	BlacklistAdditions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blacklist_additions_total",
		Help:      "Station IDs added to the blacklist.",
	})

	ProbeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_latency_seconds",
		Help:      "Latency of reachable stream HEAD probes.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1},
	})

	ControllerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "controller_state",
		Help:      "1 for the current playback controller state, 0 otherwise.",
	}, []string{"state"})
)

// Registry holds every collector above.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		DirectoryRequests,
		CandidateFailures,
		VerifiedPromotions,
		BlacklistAdditions,
		ProbeLatency,
		ControllerState,
	)
}

// SetState marks state as the only active controller state.
func SetState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		ControllerState.WithLabelValues(s).Set(v)
	}
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
