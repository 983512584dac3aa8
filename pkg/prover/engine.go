// Package prover implements the subprocess-isolated, verify-before-submit
// proof pipeline stage.
package prover

import (
	"crypto/sha256"

	"github.com/zkproof-network/prover-node/pkg/guestprogram"
)

// Engine is the zkVM proof engine boundary: a synchronous
// prove(program, inputs) -> proof_bytes function, plus the verifier that
// checks a proof against its claimed public inputs. The actual zkVM is an
// external collaborator out of scope for this runtime (spec §1); Engine is
// the seam a real zkVM backend plugs into. FibEngine below is a
// deterministic stand-in that satisfies the same contract so the rest of
// the pipeline (subprocess isolation, hashing, retry, submission) is fully
// exercised without a real proving backend.
type Engine interface {
	// Prove runs inside the isolated subprocess.
	Prove(programID string, input guestprogram.FibInput) (proofBytes []byte, err error)
	// Verify runs in-process after the subprocess returns.
	Verify(programID string, input guestprogram.FibInput, proofBytes []byte) (accepted bool, guestExitCode int, err error)
}

// FibEngine computes the Nth Fibonacci-like term seeded by (InitA, InitB)
// and commits to the full trace with SHA-256, standing in for a real STARK
// prover/verifier pair over the same public inputs.
type FibEngine struct{}

func (FibEngine) Prove(programID string, input guestprogram.FibInput) ([]byte, error) {
	trace := fibTrace(input)
	h := sha256.Sum256(trace)
	return h[:], nil
}

func (FibEngine) Verify(programID string, input guestprogram.FibInput, proofBytes []byte) (bool, int, error) {
	trace := fibTrace(input)
	want := sha256.Sum256(trace)
	if len(proofBytes) != len(want) {
		return false, 1, nil
	}
	for i := range want {
		if proofBytes[i] != want[i] {
			return false, 1, nil
		}
	}
	return true, 0, nil
}

func fibTrace(input guestprogram.FibInput) []byte {
	a, b := input.InitA, input.InitB
	trace := make([]byte, 0, (input.N+1)*4)
	for i := uint32(0); i <= input.N; i++ {
		trace = append(trace, byte(a), byte(a>>8), byte(a>>16), byte(a>>24))
		a, b = b, a+b
	}
	return trace
}
