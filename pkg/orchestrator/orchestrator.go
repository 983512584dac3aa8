// Package orchestrator defines the small interface every stage talks to —
// a real HTTP client and an in-memory mock both satisfy it — plus the HTTP
// implementation itself.
package orchestrator

import (
	"context"
	"crypto/ed25519"

	"github.com/zkproof-network/prover-node/pkg/task"
)

// NodeType is the only node_type this client ever sends.
const NodeType = "cli_prover"

// Orchestrator is the single non-data abstraction in this codebase: both
// Client (HTTP) and the test Mock implement this operation set.
type Orchestrator interface {
	RegisterUser(ctx context.Context, userID, walletAddress string) error
	RegisterNode(ctx context.Context, userID string) (nodeID string, err error)
	GetProofTask(ctx context.Context, nodeID string, verifyingKey ed25519.PublicKey, maxDifficulty *int32) (*task.Task, error)
	SubmitProof(ctx context.Context, taskID, proofHash string, proof []byte, signingKey ed25519.PrivateKey, telemetry SubmitTelemetry) (rewardsProcessed bool, err error)
	GetTasks(ctx context.Context, nodeID, nextCursor string) ([]*task.Task, error)
	GetNode(nodeID string) (walletAddress string, err error)
}

// SubmitTelemetry is the host facts attached to a proof submission.
type SubmitTelemetry struct {
	FlopsPerSec    float64
	MemoryUsedMB   int32
	MemoryCapMB    int32
	Location       string
}
