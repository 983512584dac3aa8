package orchestrator

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/zkproof-network/prover-node/pkg/task"
)

// Mock is an in-memory Orchestrator for tests: every method is backed by a
// caller-supplied func field, defaulting to a reasonable success response
// when left nil, and every call is recorded for assertions.
type Mock struct {
	mu sync.Mutex

	RegisterUserFunc  func(ctx context.Context, userID, walletAddress string) error
	RegisterNodeFunc  func(ctx context.Context, userID string) (string, error)
	GetProofTaskFunc  func(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error)
	SubmitProofFunc   func(ctx context.Context, taskID, proofHash string, proof []byte, signingKey ed25519.PrivateKey, telemetry SubmitTelemetry) (bool, error)
	GetTasksFunc      func(ctx context.Context, nodeID, nextCursor string) ([]*task.Task, error)
	GetNodeFunc       func(nodeID string) (string, error)

	SubmittedProofs []SubmittedProof
}

// SubmittedProof records one call to SubmitProof, for assertions in tests
// that the right bytes and hash were sent.
type SubmittedProof struct {
	TaskID    string
	ProofHash string
	Proof     []byte
}

var _ Orchestrator = (*Mock)(nil)

func (m *Mock) RegisterUser(ctx context.Context, userID, walletAddress string) error {
	if m.RegisterUserFunc != nil {
		return m.RegisterUserFunc(ctx, userID, walletAddress)
	}
	return nil
}

func (m *Mock) RegisterNode(ctx context.Context, userID string) (string, error) {
	if m.RegisterNodeFunc != nil {
		return m.RegisterNodeFunc(ctx, userID)
	}
	return "1", nil
}

func (m *Mock) GetProofTask(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error) {
	if m.GetProofTaskFunc != nil {
		return m.GetProofTaskFunc(ctx, nodeID, verifyingKey, maxDifficulty)
	}
	return nil, nil
}

func (m *Mock) SubmitProof(ctx context.Context, taskID, proofHash string, proof []byte, signingKey ed25519.PrivateKey, telemetry SubmitTelemetry) (bool, error) {
	m.mu.Lock()
	m.SubmittedProofs = append(m.SubmittedProofs, SubmittedProof{TaskID: taskID, ProofHash: proofHash, Proof: proof})
	m.mu.Unlock()

	if m.SubmitProofFunc != nil {
		return m.SubmitProofFunc(ctx, taskID, proofHash, proof, signingKey, telemetry)
	}
	return false, nil
}

func (m *Mock) GetTasks(ctx context.Context, nodeID, nextCursor string) ([]*task.Task, error) {
	if m.GetTasksFunc != nil {
		return m.GetTasksFunc(ctx, nodeID, nextCursor)
	}
	return nil, nil
}

func (m *Mock) GetNode(nodeID string) (string, error) {
	if m.GetNodeFunc != nil {
		return m.GetNodeFunc(nodeID)
	}
	return "0xmockwallet", nil
}
