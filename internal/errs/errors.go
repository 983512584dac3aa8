// Package errs implements the error taxonomy shared by every network-facing
// stage of the pipeline: connection failures, HTTP status classes, decode
// failures, and the task/prover-specific terminal errors.
package errs

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Classification tells a retry loop whether an error is worth retrying.
type Classification int

const (
	// Fatal errors are surfaced immediately; retrying would reproduce them.
	Fatal Classification = iota
	// Retriable errors may succeed on a later attempt.
	Retriable
)

func (c Classification) String() string {
	if c == Retriable {
		return "retriable"
	}
	return "fatal"
}

// Kind names the taxonomy entries from the error handling design.
type Kind int

const (
	KindConnection Kind = iota
	KindHTTP4xx
	KindHTTP5xx
	KindDecode
	KindUnsupportedMethod
	KindMalformedTask
	KindStwo
	KindGuestProgram
	KindSubprocess
	KindSerialization
)

var kindNames = map[Kind]string{
	KindConnection:        "connection",
	KindHTTP4xx:           "http_4xx",
	KindHTTP5xx:           "http_5xx",
	KindDecode:            "decode",
	KindUnsupportedMethod: "unsupported_method",
	KindMalformedTask:     "malformed_task",
	KindStwo:              "stwo",
	KindGuestProgram:      "guest_program",
	KindSubprocess:        "subprocess",
	KindSerialization:     "serialization",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// classification is fixed per kind. HTTP status-derived errors are
// reclassified at construction time in NewHTTP (408/429 retry despite being
// nominally 4xx).
var classification = map[Kind]Classification{
	KindConnection:        Retriable,
	KindHTTP4xx:           Fatal,
	KindHTTP5xx:           Retriable,
	KindDecode:            Retriable,
	KindUnsupportedMethod: Fatal,
	KindMalformedTask:     Fatal,
	KindStwo:              Fatal,
	KindGuestProgram:      Fatal,
	KindSubprocess:        Retriable,
	KindSerialization:     Fatal,
}

// OrchestratorError wraps a taxonomy Kind, optionally carrying the HTTP status
// code and a server-provided Retry-After delay in seconds.
type OrchestratorError struct {
	Kind       Kind
	StatusCode int
	RetryAfter *int
	cause      error
}

func (e *OrchestratorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("orchestrator error (%s, status=%d): %v", e.Kind, e.StatusCode, e.cause)
	}
	return fmt.Sprintf("orchestrator error (%s): %v", e.Kind, e.cause)
}

func (e *OrchestratorError) Unwrap() error { return e.cause }

// RetryAfterSeconds returns the server-provided delay, if any.
func (e *OrchestratorError) RetryAfterSeconds() (int, bool) {
	if e.RetryAfter == nil {
		return 0, false
	}
	return *e.RetryAfter, true
}

// New wraps cause as an OrchestratorError of the given kind.
func New(kind Kind, cause error) *OrchestratorError {
	return &OrchestratorError{Kind: kind, cause: errors.Wrap(cause, kind.String())}
}

// NewHTTP classifies an HTTP response status code into the taxonomy. 408 and
// 429 are the spec-carved exceptions to "4xx is fatal".
func NewHTTP(status int, retryAfter *int, cause error) *OrchestratorError {
	kind := KindHTTP4xx
	switch {
	case status == 408 || status == 429:
		kind = KindHTTP5xx // reuse the retriable bucket; these are transient by definition.
	case status >= 500:
		kind = KindHTTP5xx
	case status >= 400:
		kind = KindHTTP4xx
	}
	return &OrchestratorError{Kind: kind, StatusCode: status, RetryAfter: retryAfter, cause: cause}
}

// Classify returns whether err should be retried.
func Classify(err error) Classification {
	var oe *OrchestratorError
	if asOrchestrator(err, &oe) {
		if c, ok := classification[oe.Kind]; ok {
			return c
		}
	}
	var pe *ProverError
	if asProver(err, &pe) {
		if c, ok := classification[pe.Kind]; ok {
			return c
		}
	}
	return Fatal
}

// RetryAfter walks err's Unwrap chain for a server-provided Retry-After
// delay, for callers deciding how long to back off before the next attempt.
func RetryAfter(err error) (time.Duration, bool) {
	var oe *OrchestratorError
	if !asOrchestrator(err, &oe) {
		return 0, false
	}
	seconds, ok := oe.RetryAfterSeconds()
	if !ok {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func asOrchestrator(err error, target **OrchestratorError) bool {
	for err != nil {
		if oe, ok := err.(*OrchestratorError); ok {
			*target = oe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func asProver(err error, target **ProverError) bool {
	for err != nil {
		if pe, ok := err.(*ProverError); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ProverError is the taxonomy for the Prover component.
type ProverError struct {
	Kind  Kind
	cause error
}

func (e *ProverError) Error() string {
	return fmt.Sprintf("prover error (%s): %v", e.Kind, e.cause)
}

func (e *ProverError) Unwrap() error { return e.cause }

// NewProver wraps cause as a ProverError of the given kind.
func NewProver(kind Kind, cause error) *ProverError {
	return &ProverError{Kind: kind, cause: errors.Wrap(cause, kind.String())}
}

// MalformedTask builds the specific ProverError raised for task-shape
// violations (empty inputs, unknown program_id).
func MalformedTask(format string, args ...any) *ProverError {
	return NewProver(KindMalformedTask, fmt.Errorf(format, args...))
}
