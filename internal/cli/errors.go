package cli

import (
	"errors"
	"fmt"

	"github.com/rshade/mediabatch/internal/engine/batch"
)

// Exit codes returned by the mediabatch binary.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitFailures = 2
)

// BatchFailureError reports a batch that drained with failed tasks. It is not a
// crash: the results were rendered, and the process exits with ExitFailures.
type BatchFailureError struct {
	Kind    string
	Summary batch.Summary
}

func (e *BatchFailureError) Error() string {
	if e.Summary.AllFailed() {
		return fmt.Sprintf("%s: all %d tasks failed", e.Kind, e.Summary.Total)
	}
	return fmt.Sprintf("%s: %d of %d tasks failed", e.Kind, e.Summary.FailureCount, e.Summary.Total)
}

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var failure *BatchFailureError
	if errors.As(err, &failure) {
		return ExitFailures
	}
	return ExitError
}
