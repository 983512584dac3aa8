package pipeline_test

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/internal/identity"
	"github.com/zkproof-network/prover-node/pkg/fetcher"
	"github.com/zkproof-network/prover-node/pkg/guestprogram"
	"github.com/zkproof-network/prover-node/pkg/orchestrator"
	"github.com/zkproof-network/prover-node/pkg/pipeline"
	"github.com/zkproof-network/prover-node/pkg/prover"
	"github.com/zkproof-network/prover-node/pkg/submitter"
	"github.com/zkproof-network/prover-node/pkg/task"
)

// TestMain re-execs this test binary as the isolated proving subprocess, the
// same pattern pkg/prover's own tests use to exercise subprocess.go for real.
func TestMain(m *testing.M) {
	if len(os.Args) > 2 && os.Args[1] == prover.SubcommandName {
		programID := os.Args[2]
		frame, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := prover.RunSubprocessEntrypoint(prover.FibEngine{}, programID, frame, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func newIdentity(t *testing.T) *identity.NodeIdentity {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return identity.New(1, "0xwallet", priv)
}

func TestRunCompletesMaxTasksThenStopsCleanly(t *testing.T) {
	var fetched, submitted int32
	mock := &orchestrator.Mock{
		GetProofTaskFunc: func(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
			n := atomic.AddInt32(&fetched, 1)
			return &task.Task{
				TaskID:       fmt.Sprintf("task-%d", n),
				ProgramID:    guestprogram.FibInputInitial,
				PublicInputs: [][]byte{guestprogram.FibInput{N: 3, InitA: 0, InitB: 1}.Encode()},
				Type:         task.ProofHash,
			}, nil
		},
		SubmitProofFunc: func(ctx context.Context, taskID, proofHash string, proof []byte, signingKey ed25519.PrivateKey, telemetry orchestrator.SubmitTelemetry) (bool, error) {
			atomic.AddInt32(&submitted, 1)
			return false, nil
		},
	}

	id := newIdentity(t)
	f := fetcher.New(mock, id, nil, fetcher.Config{MaxRetries: 1})
	p := prover.New(prover.Config{SelfExe: os.Args[0]}, prover.FibEngine{}, nil, 1)
	s := submitter.New(mock, id, nil, nil, submitter.Config{MaxRetries: 1})

	pl := pipeline.New(f, p, s, nil, pipeline.Config{MaxTasks: 2, GracePeriod: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := pl.Run(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&fetched))
	require.EqualValues(t, 2, atomic.LoadInt32(&submitted))
}

func TestRunContinuesPastFatalFetchError(t *testing.T) {
	var attempts int32
	mock := &orchestrator.Mock{
		GetProofTaskFunc: func(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, errs.New(errs.KindUnsupportedMethod, errBoom)
		},
	}

	id := newIdentity(t)
	f := fetcher.New(mock, id, nil, fetcher.Config{MaxRetries: 1})
	p := prover.New(prover.Config{SelfExe: os.Args[0]}, prover.FibEngine{}, nil, 1)
	s := submitter.New(mock, id, nil, nil, submitter.Config{MaxRetries: 1})

	pl := pipeline.New(f, p, s, nil, pipeline.Config{MaxTasks: 5, GracePeriod: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := pl.Run(ctx)
	require.NoError(t, err)
	require.Greater(t, int(atomic.LoadInt32(&attempts)), 1)
}

func TestRunStopsCleanlyOnContextCancel(t *testing.T) {
	mock := &orchestrator.Mock{}
	id := newIdentity(t)
	f := fetcher.New(mock, id, nil, fetcher.Config{MaxRetries: 1})
	p := prover.New(prover.Config{SelfExe: os.Args[0]}, prover.FibEngine{}, nil, 1)
	s := submitter.New(mock, id, nil, nil, submitter.Config{MaxRetries: 1})

	pl := pipeline.New(f, p, s, nil, pipeline.Config{GracePeriod: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pl.Run(ctx)
	require.NoError(t, err)
}

type plainError string

func (e plainError) Error() string { return string(e) }

var errBoom = plainError("boom")
