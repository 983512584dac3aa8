// Package fetcher implements the pipeline's first stage: pace requests to
// the orchestrator's task endpoint, decide what difficulty to ask for, and
// retry retriable failures up to a budget.
package fetcher

import (
	"context"
	"time"

	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/internal/events"
	"github.com/zkproof-network/prover-node/internal/identity"
	"github.com/zkproof-network/prover-node/internal/metrics"
	"github.com/zkproof-network/prover-node/internal/ratelimit"
	"github.com/zkproof-network/prover-node/pkg/difficulty"
	"github.com/zkproof-network/prover-node/pkg/orchestrator"
	"github.com/zkproof-network/prover-node/pkg/task"
)

// Config controls one Fetcher's pacing and retry budget.
type Config struct {
	Timer      ratelimit.Config
	MaxRetries int
	// MaxDifficultyOverride, if set, pins every FetchTask call's requested
	// difficulty, bypassing the adaptive policy entirely.
	MaxDifficultyOverride *difficulty.Difficulty
}

// Fetcher produces one Task per successful FetchTask call, gated by its own
// RequestTimer and the adaptive difficulty Policy.
type Fetcher struct {
	orch     orchestrator.Orchestrator
	identity *identity.NodeIdentity
	bus      *events.Bus
	timer    *ratelimit.Timer
	policy   *difficulty.Policy
	override *difficulty.Difficulty

	maxRetries int

	lastProofDuration time.Duration
	lastProofFailed   bool
}

// New builds a Fetcher bound to one orchestrator client and node identity.
func New(orch orchestrator.Orchestrator, id *identity.NodeIdentity, bus *events.Bus, cfg Config) *Fetcher {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Fetcher{
		orch:       orch,
		identity:   id,
		bus:        bus,
		timer:      ratelimit.New(cfg.Timer),
		policy:     difficulty.NewPolicy(),
		override:   cfg.MaxDifficultyOverride,
		maxRetries: maxRetries,
	}
}

// RecordProofOutcome feeds the previous cycle's proof result into the
// adaptive difficulty policy, consumed by the next FetchTask call.
func (f *Fetcher) RecordProofOutcome(duration time.Duration, failed bool) {
	f.lastProofDuration = duration
	f.lastProofFailed = failed
}

// FetchTask runs the gate-attempt-retry state machine for a single fetch. If
// override is non-nil it is used verbatim as the requested difficulty.
func (f *Fetcher) FetchTask(ctx context.Context, override *difficulty.Difficulty) (*task.Task, error) {
	if override == nil {
		override = f.override
	}
	wanted := f.policy.Next(override, f.lastProofDuration, f.lastProofFailed)
	difficultyValue := int32(wanted)

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if err := f.waitForGate(ctx); err != nil {
			return nil, err
		}

		f.logPublish(events.New(events.TaskFetcherWorker(), events.EventRefresh, "requesting task"))
		f.timer.RecordSend()

		t, err := f.orch.GetProofTask(ctx, f.identity.NodeIDString(), f.identity.VerifyingKey, &difficultyValue)
		if err == nil {
			f.timer.RecordSuccess()
			metrics.TasksFetched.WithLabelValues(t.Difficulty.String()).Inc()
			f.logPublish(events.New(events.TaskFetcherWorker(), events.EventSuccess, "fetched task "+t.TaskID))
			return t, nil
		}

		lastErr = err
		retryAfter, _ := errs.RetryAfter(err)
		var retryAfterPtr *time.Duration
		if retryAfter > 0 {
			retryAfterPtr = &retryAfter
		}
		f.timer.RecordFailure(retryAfterPtr)
		f.logPublish(events.NewWithLevel(events.TaskFetcherWorker(), events.EventError, events.LogWarn, err.Error()))

		if errs.Classify(err) != errs.Retriable || attempt == f.maxRetries {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// logPublish is a nil-safe wrapper: a Fetcher built without a Bus (as in
// tests exercising only the retry/pacing logic) still logs and runs cleanly.
func (f *Fetcher) logPublish(e events.Event) {
	if f.bus == nil {
		return
	}
	f.bus.LogAndPublish(e)
}

// waitForGate blocks until the RequestTimer admits the next attempt,
// emitting a Waiting event for any non-trivial pause, or returns ctx's error
// if cancelled first.
func (f *Fetcher) waitForGate(ctx context.Context) error {
	wait := f.timer.TimeUntilNext()
	if wait <= 0 {
		return nil
	}
	f.logPublish(events.NewWithLevel(events.TaskFetcherWorker(), events.EventWaiting, events.LogDebug, "paced by request timer"))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
