// Package metrics defines the Prometheus instrumentation exported by the
// local HTTP server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry isolates this process's metrics from the default global registry
// so the local HTTP server can expose exactly this set.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// TasksFetched counts successful GetProofTask responses, labeled by
	// the difficulty the orchestrator handed back.
	TasksFetched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prover_node",
		Name:      "tasks_fetched_total",
		Help:      "Number of proof tasks fetched from the orchestrator.",
	}, []string{"difficulty"})

	// ProofsGenerated counts completed proof computations, labeled by
	// program id and whether in-process verification passed.
	ProofsGenerated = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prover_node",
		Name:      "proofs_generated_total",
		Help:      "Number of proofs generated by the subprocess-isolated prover.",
	}, []string{"program_id", "verified"})

	// ProofDuration observes wall-clock proof generation time in seconds.
	ProofDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prover_node",
		Name:      "proof_duration_seconds",
		Help:      "Time spent generating a single proof, from dispatch to subprocess exit.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"program_id"})

	// VerificationFailures counts proofs whose in-process verification
	// rejected the subprocess's output.
	VerificationFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "prover_node",
		Name:      "verification_failures_total",
		Help:      "Number of proofs that failed in-process verification before submission.",
	})

	// SubmitOutcomes counts terminal submit-proof results, labeled by
	// outcome (success, failure).
	SubmitOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prover_node",
		Name:      "submit_outcomes_total",
		Help:      "Terminal outcomes of proof submission to the orchestrator.",
	}, []string{"outcome"})

	// ActiveProvers reports the current number of concurrently running
	// prover worker goroutines.
	ActiveProvers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "prover_node",
		Name:      "active_provers",
		Help:      "Number of prover workers currently executing a subprocess.",
	})
)
