package errs

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// ExitCode maps a Kind to the process exit code from spec.md section 6.
func ExitCode(k Kind) int {
	switch k {
	case KindNotFound:
		// "logical not-found or benign failure" (key missing, queue
		// empty, not leader at check).
		return 1
	case KindInvalidArgument:
		return 2
	case KindServiceThrottled, KindServiceError, KindPermissionDenied:
		return 3
	case KindCoordinationUnavailable, KindAlreadyExists, KindConditionFailed:
		// lock held by another, not elected, dedup hit, CAS/version
		// mismatch all read as "coordination unavailability" to the caller.
		return 4
	case KindTimeout:
		return 5
	default:
		return 3
	}
}

// Handler renders an error to stderr as the two-section envelope from
// spec.md section 6 ("Error: ... \n\nSolution: ...") and reports the exit
// code the caller should use. It is the CLI counterpart of the teacher's
// HTTP ErrorHandler: same "classify, log, render" shape, different sink.
type Handler struct {
	logger  *zap.Logger
	verbose bool
	stderr  io.Writer
}

func NewHandler(logger *zap.Logger, verbose bool, stderr io.Writer) *Handler {
	return &Handler{logger: logger, verbose: verbose, stderr: stderr}
}

// Handle writes the error envelope and returns the process exit code.
func (h *Handler) Handle(err error) int {
	if err == nil {
		return 0
	}

	e, ok := As(err)
	if !ok {
		e = ServiceError("an unexpected error occurred").WithCause(err)
	}

	h.logger.Debug("command failed",
		zap.String("kind", string(e.Kind)),
		zap.String("message", e.Message),
		zap.Error(e.Cause),
	)

	fmt.Fprintf(h.stderr, "Error: %s\n", e.Message)
	if e.Solution != "" {
		fmt.Fprintf(h.stderr, "\nSolution: %s\n", e.Solution)
	}
	if h.verbose && e.Cause != nil {
		fmt.Fprintf(h.stderr, "\nCause: %v\n", e.Cause)
	}
	if h.verbose && len(e.Details) > 0 {
		fmt.Fprintf(h.stderr, "Details: %+v\n", e.Details)
	}

	return ExitCode(e.Kind)
}
