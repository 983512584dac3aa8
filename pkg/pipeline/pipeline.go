// Package pipeline wires the Fetcher, Prover, and Submitter into the
// strictly-sequential fetch→prove→submit cycle, driving the four-state
// ProverState machine and the shutdown/grace-period cancellation contract.
package pipeline

import (
	"context"
	"time"

	"github.com/zkproof-network/prover-node/internal/events"
	"github.com/zkproof-network/prover-node/pkg/fetcher"
	"github.com/zkproof-network/prover-node/pkg/prover"
	"github.com/zkproof-network/prover-node/pkg/submitter"
)

// Config controls one Pipeline run.
type Config struct {
	// MaxTasks stops the pipeline cleanly after this many completed cycles.
	// Zero means unlimited.
	MaxTasks int
	// GracePeriod extends the context seen by Prove/Submit past the outer
	// shutdown signal, so a proof already in flight gets a chance to finish
	// and be delivered rather than being killed mid-subprocess.
	GracePeriod time.Duration
}

// Pipeline runs one node's single in-flight-task cycle.
type Pipeline struct {
	fetcher   *fetcher.Fetcher
	prover    *prover.Prover
	submitter *submitter.Submitter
	bus       *events.Bus
	cfg       Config
}

// New builds a Pipeline from its three already-configured stages.
func New(f *fetcher.Fetcher, p *prover.Prover, s *submitter.Submitter, bus *events.Bus, cfg Config) *Pipeline {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 30 * time.Second
	}
	return &Pipeline{fetcher: f, prover: p, submitter: s, bus: bus, cfg: cfg}
}

// Run executes cycles until ctx is cancelled or MaxTasks completed cycles
// are reached, returning nil for either clean exit. Only a cancelled ctx or
// MaxTasks ends the process; a stage error, fatal or retriable, is logged
// and the pipeline moves on to the next cycle.
func (pl *Pipeline) Run(ctx context.Context) error {
	tasksCompleted := 0
	graceCtx, cancelGrace := withGrace(ctx, pl.cfg.GracePeriod)
	defer cancelGrace()

	for {
		if ctx.Err() != nil {
			pl.emitShutdown("shutdown requested")
			return nil
		}
		if pl.cfg.MaxTasks > 0 && tasksCompleted >= pl.cfg.MaxTasks {
			pl.emitShutdown("max tasks reached")
			return nil
		}

		pl.emitState(events.StateFetching, "fetching task")
		t, err := pl.fetcher.FetchTask(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				pl.emitShutdown("shutdown requested")
				return nil
			}
			pl.emitState(events.StateWaiting, "fetch failed, waiting to retry")
			continue
		}

		pl.emitState(events.StateProving, "proving task "+t.TaskID)
		start := time.Now()
		result, proveErr := pl.prover.Prove(graceCtx, t)
		duration := time.Since(start)
		pl.fetcher.RecordProofOutcome(duration, proveErr != nil)
		if proveErr != nil {
			pl.emitState(events.StateWaiting, "proof failed, waiting to retry")
			continue
		}

		pl.emitState(events.StateSubmitting, "submitting proof for "+t.TaskID)
		if _, err := pl.submitter.Submit(graceCtx, t, result); err != nil {
			pl.emitState(events.StateWaiting, "submit failed, waiting to retry")
			continue
		}

		tasksCompleted++
		pl.emitState(events.StateWaiting, "cycle complete")
	}
}

func (pl *Pipeline) emitState(state events.ProverState, message string) {
	if pl.bus == nil {
		return
	}
	pl.bus.LogAndPublish(events.StateChange(state, message, time.Now()))
}

func (pl *Pipeline) emitShutdown(reason string) {
	if pl.bus == nil {
		return
	}
	pl.bus.LogAndPublish(events.New(events.TaskFetcherWorker(), events.EventShutdown, reason))
}

// withGrace returns a context independent of parent's own deadline that is
// cancelled GracePeriod after parent is done (or immediately if parent is
// never cancelled, via the returned CancelFunc). This lets in-flight
// subprocess work finish draining after a shutdown signal instead of being
// killed the instant the signal fires.
func withGrace(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			timer := time.NewTimer(grace)
			defer timer.Stop()
			select {
			case <-timer.C:
				cancel()
			case <-done:
			}
		case <-done:
		}
	}()
	return ctx, func() {
		close(done)
		cancel()
	}
}
