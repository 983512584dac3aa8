// Package submitter implements the pipeline's terminal stage: serialize,
// sign, and upload a ProofResult, retrying with a higher ceiling than the
// Fetcher since a proof is expensive to regenerate on total failure.
package submitter

import (
	"context"
	"time"

	"github.com/zkproof-network/prover-node/internal/analytics"
	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/internal/events"
	"github.com/zkproof-network/prover-node/internal/identity"
	"github.com/zkproof-network/prover-node/internal/metrics"
	"github.com/zkproof-network/prover-node/internal/ratelimit"
	"github.com/zkproof-network/prover-node/internal/telemetry"
	"github.com/zkproof-network/prover-node/pkg/orchestrator"
	"github.com/zkproof-network/prover-node/pkg/task"
)

// defaultMaxRetries is higher than the Fetcher's default: a proof that took
// minutes to generate is worth several more attempts to deliver.
const defaultMaxRetries = 8

// Config controls one Submitter's pacing, retry budget, and the telemetry
// sidecar it attaches to every submission.
type Config struct {
	Timer      ratelimit.Config
	MaxRetries int
	// NumProvers feeds the FLOPS estimate attached as telemetry.
	NumProvers int
}

// Submitter uploads proofs to the orchestrator, independently paced and
// retried from the Fetcher's endpoint.
type Submitter struct {
	orch      orchestrator.Orchestrator
	identity  *identity.NodeIdentity
	bus       *events.Bus
	analytics *analytics.Sink
	timer     *ratelimit.Timer

	maxRetries int
	numProvers int
}

// New builds a Submitter. analyticsSink receives one proof_submitted event per
// successful submission and may be nil to disable it (e.g. in tests); no
// verification-failure analytics event is sent by the Submitter or the Prover.
func New(orch orchestrator.Orchestrator, id *identity.NodeIdentity, bus *events.Bus, analyticsSink *analytics.Sink, cfg Config) *Submitter {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Submitter{
		orch:       orch,
		identity:   id,
		bus:        bus,
		analytics:  analyticsSink,
		timer:      ratelimit.New(cfg.Timer),
		maxRetries: maxRetries,
		numProvers: cfg.NumProvers,
	}
}

// Submit delivers result for t, retrying retriable failures up to the
// configured budget. Returns whether the orchestrator flagged rewards as
// processed for this submission.
func (s *Submitter) Submit(ctx context.Context, t *task.Task, result *task.ProofResult) (bool, error) {
	snapshot := telemetry.Measure(s.numProvers)
	wireTelemetry := orchestrator.SubmitTelemetry{
		FlopsPerSec:  snapshot.FlopsPerSec,
		MemoryUsedMB: snapshot.MemoryUsedMB,
		MemoryCapMB:  snapshot.MemoryCapMB,
		Location:     snapshot.Location,
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := s.waitForGate(ctx); err != nil {
			return false, err
		}

		s.timer.RecordSend()
		rewardsProcessed, err := s.orch.SubmitProof(ctx, t.TaskID, result.CombinedHash, result.ProofBytes, s.identity.SigningKey, wireTelemetry)
		if err == nil {
			s.timer.RecordSuccess()
			metrics.SubmitOutcomes.WithLabelValues("success").Inc()
			s.logPublish(events.New(events.ProofSubmitterWorker(), events.EventSuccess, "Submitted!"))
			if rewardsProcessed {
				s.logPublish(events.New(events.ProofSubmitterWorker(), events.EventSuccess, "rewards processed"))
			}
			s.trackAsync(t.TaskID)
			return rewardsProcessed, nil
		}

		lastErr = err
		retryAfter, _ := errs.RetryAfter(err)
		var retryAfterPtr *time.Duration
		if retryAfter > 0 {
			retryAfterPtr = &retryAfter
		}
		s.timer.RecordFailure(retryAfterPtr)
		s.logPublish(events.NewWithLevel(events.ProofSubmitterWorker(), events.EventError, events.LogWarn, err.Error()))

		if errs.Classify(err) != errs.Retriable || attempt == s.maxRetries {
			metrics.SubmitOutcomes.WithLabelValues("failure").Inc()
			return false, lastErr
		}
	}
	metrics.SubmitOutcomes.WithLabelValues("failure").Inc()
	return false, lastErr
}

func (s *Submitter) trackAsync(taskID string) {
	if s.analytics == nil {
		return
	}
	s.analytics.TrackAsync([]string{"proof_submitted"}, map[string]any{"task_id": taskID})
}

func (s *Submitter) logPublish(e events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.LogAndPublish(e)
}

func (s *Submitter) waitForGate(ctx context.Context) error {
	wait := s.timer.TimeUntilNext()
	if wait <= 0 {
		return nil
	}
	s.logPublish(events.NewWithLevel(events.ProofSubmitterWorker(), events.EventWaiting, events.LogDebug, "paced by request timer"))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
