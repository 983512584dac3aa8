package prover

import (
	"bytes"
	"context"
	"io"
	"os/exec"

	"github.com/zkproof-network/prover-node/internal/errs"
	"github.com/zkproof-network/prover-node/pkg/guestprogram"
)

// SubcommandName is the hidden CLI subcommand the parent re-execs itself
// with to isolate proof generation in a child process.
const SubcommandName = "__prove_subprocess"

// subprocessRunner spawns a dedicated child process per input frame and
// returns the proof bytes it writes to stdout. The child performs proof
// generation only; the parent verifies.
type subprocessRunner struct {
	selfExe string
}

func newSubprocessRunner(selfExe string) *subprocessRunner {
	return &subprocessRunner{selfExe: selfExe}
}

func (r *subprocessRunner) run(ctx context.Context, programID string, input guestprogram.FibInput) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.selfExe, SubcommandName, programID)
	cmd.Stdin = bytes.NewReader(input.Encode())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, errs.NewProver(errs.KindSubprocess, ctx.Err())
	}
	if err != nil {
		return nil, errs.NewProver(errs.KindSubprocess, err)
	}
	if stdout.Len() == 0 {
		return nil, errs.NewProver(errs.KindSubprocess, errEmptyProof(stderr.String()))
	}
	return stdout.Bytes(), nil
}

type errEmptyProof string

func (e errEmptyProof) Error() string {
	if e == "" {
		return "subprocess produced no proof bytes"
	}
	return "subprocess produced no proof bytes: " + string(e)
}

// RunSubprocessEntrypoint is invoked by cmd/prover-node's hidden subcommand
// handler. It reads a public input frame from stdin, proves it with engine,
// and writes the proof bytes to stdout. Returns a non-zero-worthy error on
// any failure so the caller can set the child's exit code.
func RunSubprocessEntrypoint(engine Engine, programID string, frame []byte, stdout io.Writer) error {
	input, err := guestprogram.DecodeFibInput(frame)
	if err != nil {
		return err
	}
	proofBytes, err := engine.Prove(programID, input)
	if err != nil {
		return errs.NewProver(errs.KindStwo, err)
	}
	if _, err := stdout.Write(proofBytes); err != nil {
		return errs.NewProver(errs.KindSerialization, err)
	}
	return nil
}
