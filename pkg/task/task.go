// Package task defines the Task and ProofResult domain types flowing
// between the Fetcher, Prover, and Submitter stages.
package task

import (
	"time"

	"github.com/zkproof-network/prover-node/pkg/difficulty"
)

// Type distinguishes how a multi-input task's per-input hashes are combined
// into a single submission.
type Type int

const (
	// ProofHash combines per-input hashes into one Keccak256 commitment.
	ProofHash Type = iota
	// AllProofHashes is functionally identical to ProofHash at the hashing
	// layer (both concatenate-then-hash); the orchestrator distinguishes
	// them for its own bookkeeping, so the client preserves the tag.
	AllProofHashes
)

func (t Type) String() string {
	if t == AllProofHashes {
		return "all_proof_hashes"
	}
	return "proof_hash"
}

// Task is immutable after fetch and lives for exactly one pipeline cycle.
type Task struct {
	TaskID        string
	ProgramID     string
	PublicInputs  [][]byte // ordered sequence of input frames
	Type          Type
	CreatedAt     time.Time
	Difficulty    difficulty.Difficulty
	RetryAfterSec *int
}

// ProofResult is derived from a Task and discarded after submit.
type ProofResult struct {
	ProofBytes   []byte
	CombinedHash string // lowercase hex of a 32-byte Keccak256 digest
}
