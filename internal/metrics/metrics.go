package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every tagmda metric, exported as a node-exporter textfile
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// Pending queue metrics
var (
	PendingRuns = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "tagmda_pending_runs_total",
			Help: "Total number of pending queue runs",
		},
	)

	PendingDispositions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagmda_pending_dispositions_total",
			Help: "Total number of held messages disposed of",
		},
		[]string{"action", "mode"},
	)

	PendingSkipped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagmda_pending_skipped_total",
			Help: "Total number of held messages skipped by the pending loop",
		},
		[]string{"reason"},
	)
)

// Address metrics
var (
	AddressesGenerated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagmda_addresses_generated_total",
			Help: "Total number of tagged addresses generated",
		},
		[]string{"kind"},
	)

	AddressChecks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagmda_address_checks_total",
			Help: "Total number of tagged address verifications",
		},
		[]string{"kind", "result"},
	)
)

// WriteTextfile writes the registry to path in the Prometheus text format.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
