package fetcher_test

import (
	"context"
	"crypto/ed25519"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/internal/identity"
	"github.com/zkproof-network/prover-node/pkg/fetcher"
	"github.com/zkproof-network/prover-node/pkg/orchestrator"
	"github.com/zkproof-network/prover-node/pkg/task"
)

func newTestIdentity(t *testing.T) *identity.NodeIdentity {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return identity.New(7, "0xwallet", priv)
}

func TestFetchTaskHappyPath(t *testing.T) {
	mock := &orchestrator.Mock{
		GetProofTaskFunc: func(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
			return &task.Task{TaskID: "t1", PublicInputs: [][]byte{{1}}}, nil
		},
	}
	f := fetcher.New(mock, newTestIdentity(t), nil, fetcher.Config{MaxRetries: 2})

	got, err := f.FetchTask(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "t1", got.TaskID)
}

func TestFetchTaskRetriesRetriableThenSucceeds(t *testing.T) {
	var calls int32
	mock := &orchestrator.Mock{
		GetProofTaskFunc: func(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				return nil, errs.New(errs.KindConnection, errConnRefused)
			}
			return &task.Task{TaskID: "t2", PublicInputs: [][]byte{{1}}}, nil
		},
	}
	f := fetcher.New(mock, newTestIdentity(t), nil, fetcher.Config{MaxRetries: 3})

	got, err := f.FetchTask(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "t2", got.TaskID)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchTaskFatalErrorStopsImmediately(t *testing.T) {
	var calls int32
	mock := &orchestrator.Mock{
		GetProofTaskFunc: func(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errs.New(errs.KindUnsupportedMethod, errConnRefused)
		},
	}
	f := fetcher.New(mock, newTestIdentity(t), nil, fetcher.Config{MaxRetries: 5})

	_, err := f.FetchTask(context.Background(), nil)
	require.Error(t, err)
	require.Equal(t, errs.Fatal, errs.Classify(err))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchTaskExhaustsRetryBudget(t *testing.T) {
	var calls int32
	mock := &orchestrator.Mock{
		GetProofTaskFunc: func(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errs.New(errs.KindConnection, errConnRefused)
		},
	}
	f := fetcher.New(mock, newTestIdentity(t), nil, fetcher.Config{MaxRetries: 2})

	_, err := f.FetchTask(context.Background(), nil)
	require.Error(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls)) // initial attempt + 2 retries
}

type plainError string

func (e plainError) Error() string { return string(e) }

var errConnRefused = plainError("connection refused")
