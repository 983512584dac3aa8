package prover

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/internal/events"
	"github.com/zkproof-network/prover-node/internal/metrics"
	"github.com/zkproof-network/prover-node/pkg/guestprogram"
	"github.com/zkproof-network/prover-node/pkg/task"
)

// dedupCacheSize bounds the LRU of recently-proved task ids, so a task
// redelivered by the orchestrator within one session is not re-proved.
const dedupCacheSize = 256

// Config controls the Prover's subprocess isolation and concurrency.
type Config struct {
	// SelfExe is the path to this binary, re-exec'd for each input.
	SelfExe string
	// MaxConcurrentInputs bounds the per-task input pool.
	MaxConcurrentInputs int
	// SubprocessTimeout bounds a single child's lifetime; zero means no
	// timeout (matches spec's "operator-configurable timeout, default none").
	SubprocessTimeout time.Duration
}

// Prover proves Tasks, isolating each input's computation in a subprocess
// and verifying the result in-process before returning it.
type Prover struct {
	cfg    Config
	engine Engine
	bus    *events.Bus
	worker events.Worker
	seen   *lru.Cache[string, struct{}]
}

// New builds a Prover. worker identifies this prover instance on the
// EventBus (its inline id, for multi-prover deployments).
func New(cfg Config, engine Engine, bus *events.Bus, proverID int) *Prover {
	if cfg.MaxConcurrentInputs <= 0 {
		cfg.MaxConcurrentInputs = 4
	}
	cache, _ := lru.New[string, struct{}](dedupCacheSize)
	return &Prover{
		cfg:    cfg,
		engine: engine,
		bus:    bus,
		worker: events.ProverWorker(proverID),
		seen:   cache,
	}
}

// Prove turns t into a ProofResult. Each input frame is proved and verified
// independently and concurrently, bounded by cfg.MaxConcurrentInputs; a
// per-input failure does not cancel sibling proofs already in flight unless
// ctx is cancelled (global shutdown).
func (p *Prover) Prove(ctx context.Context, t *task.Task) (*task.ProofResult, error) {
	if len(t.PublicInputs) == 0 {
		return nil, errs.MalformedTask("task %s has no public inputs", t.TaskID)
	}
	if !guestprogram.IsKnownProgram(t.ProgramID) {
		return nil, errs.MalformedTask("unknown program_id: %s", t.ProgramID)
	}

	if _, ok := p.seen.Get(t.TaskID); ok {
		return nil, errs.NewProver(errs.KindMalformedTask, errAlreadyProved(t.TaskID))
	}

	hashes := make([]string, len(t.PublicInputs))
	proofs := make([][]byte, len(t.PublicInputs))

	// A plain errgroup.Group, not errgroup.WithContext, so one input's
	// failure is recorded without tearing down its siblings' subprocesses:
	// only ctx itself (an outer shutdown) should ever cancel work in flight.
	var group errgroup.Group
	group.SetLimit(p.cfg.MaxConcurrentInputs)

	for i, frame := range t.PublicInputs {
		i, frame := i, frame
		group.Go(func() error {
			hash, proofBytes, err := p.proveOneInput(ctx, t.ProgramID, frame)
			if err != nil {
				return err
			}
			hashes[i] = hash
			proofs[i] = proofBytes
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	p.seen.Add(t.TaskID, struct{}{})

	combined := combineHashes(t.Type, hashes)
	return &task.ProofResult{
		ProofBytes:   concatProofs(proofs),
		CombinedHash: combined,
	}, nil
}

func (p *Prover) proveOneInput(ctx context.Context, programID string, frame []byte) (hash string, proofBytes []byte, err error) {
	input, err := guestprogram.DecodeFibInput(frame)
	if err != nil {
		return "", nil, err
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.SubprocessTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.SubprocessTimeout)
		defer cancel()
	}

	metrics.ActiveProvers.Inc()
	defer metrics.ActiveProvers.Dec()

	start := time.Now()
	runner := newSubprocessRunner(p.cfg.SelfExe)
	proofBytes, err = runner.run(runCtx, programID, input)
	metrics.ProofDuration.WithLabelValues(programID).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", nil, err
	}

	accepted, exitCode, err := p.engine.Verify(programID, input, proofBytes)
	if err != nil {
		return "", nil, errs.NewProver(errs.KindStwo, err)
	}
	if !accepted || exitCode != 0 {
		metrics.VerificationFailures.Inc()
		metrics.ProofsGenerated.WithLabelValues(programID, "false").Inc()
		if p.bus != nil {
			p.bus.LogAndPublish(events.NewWithLevel(p.worker, events.EventError, events.LogError, "guest program rejected proof"))
		}
		return "", nil, errs.NewProver(errs.KindGuestProgram, errVerificationRejected)
	}

	metrics.ProofsGenerated.WithLabelValues(programID, "true").Inc()
	return keccakHex(proofBytes), proofBytes, nil
}

var errVerificationRejected = plainError("verifier rejected proof")

type plainError string

func (e plainError) Error() string { return string(e) }

type errAlreadyProved string

func (e errAlreadyProved) Error() string { return "task already proved this session: " + string(e) }

func keccakHex(data []byte) string {
	h := crypto.Keccak256(data)
	return hex.EncodeToString(h)
}

// combineHashes implements invariant 3: for ProofHash/AllProofHashes task
// types the combined hash is Keccak256 of the concatenated per-input hex
// hashes, in input order; otherwise it is the first input's hash.
func combineHashes(taskType task.Type, hashes []string) string {
	if len(hashes) == 0 {
		return ""
	}
	switch taskType {
	case task.ProofHash, task.AllProofHashes:
		var concat []byte
		for _, h := range hashes {
			concat = append(concat, []byte(h)...)
		}
		return keccakHex(concat)
	default:
		return hashes[0]
	}
}

func concatProofs(proofs [][]byte) []byte {
	var out []byte
	for _, p := range proofs {
		out = append(out, p...)
	}
	return out
}
