// Package guestprogram decodes a Task's public input frames into the shape
// a specific guest program expects, and rejects frames for unknown program
// ids before any subprocess is spawned.
package guestprogram

import (
	"encoding/binary"

	"github.com/zkproof-network/prover-node/internal/errs"
)

// FibInputInitial is the reference guest program id: a Fibonacci sequence
// seeded by an initial pair.
const FibInputInitial = "fib_input_initial"

// FibInput is the public-input shape for FibInputInitial: compute the Nth
// term of the sequence seeded by (InitA, InitB).
type FibInput struct {
	N     uint32
	InitA uint32
	InitB uint32
}

// fibInputSize is the little-endian wire size of FibInput: three uint32s.
const fibInputSize = 12

// DecodeFibInput parses one public input frame for FibInputInitial.
func DecodeFibInput(frame []byte) (FibInput, error) {
	if len(frame) != fibInputSize {
		return FibInput{}, errs.MalformedTask("fib_input_initial frame is %d bytes, want %d", len(frame), fibInputSize)
	}
	return FibInput{
		N:     binary.LittleEndian.Uint32(frame[0:4]),
		InitA: binary.LittleEndian.Uint32(frame[4:8]),
		InitB: binary.LittleEndian.Uint32(frame[8:12]),
	}, nil
}

// Encode serializes a FibInput back to its wire frame, used by tests and by
// the anonymous/offline proving mode to build a canned task.
func (f FibInput) Encode() []byte {
	buf := make([]byte, fibInputSize)
	binary.LittleEndian.PutUint32(buf[0:4], f.N)
	binary.LittleEndian.PutUint32(buf[4:8], f.InitA)
	binary.LittleEndian.PutUint32(buf[8:12], f.InitB)
	return buf
}

// IsKnownProgram reports whether programID names a guest program this
// prover can decode inputs for.
func IsKnownProgram(programID string) bool {
	return programID == FibInputInitial
}

// DecodePublicInput dispatches on programID to the correct decoder, failing
// closed for any program this binary does not recognize.
func DecodePublicInput(programID string, frame []byte) (FibInput, error) {
	if !IsKnownProgram(programID) {
		return FibInput{}, errs.MalformedTask("unknown program_id: %s", programID)
	}
	return DecodeFibInput(frame)
}
