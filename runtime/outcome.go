package runtime

import (
	"errors"
	"fmt"

	"github.com/xzemt/OmniAlpha/types"
)

// Process exit codes for omnialpha commands.
const (
	ExitCodeSucceeded    = 0   // job succeeded
	ExitCodeFailed       = 1   // transport failure or truncated stream
	ExitCodeInvalidInput = 2   // invalid arguments, request or config
	ExitCodeCancelled    = 130 // interrupted (SIGINT/SIGTERM)
)

// ExitCodeFor maps a terminal job status to a process exit code.
// Non-terminal statuses map to ExitCodeFailed.
func ExitCodeFor(status types.JobStatus) int {
	switch status {
	case types.JobStatusSucceeded:
		return ExitCodeSucceeded
	case types.JobStatusCancelled:
		return ExitCodeCancelled
	default:
		return ExitCodeFailed
	}
}

// ExitCodeForError maps an error returned before a job ran.
func ExitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitCodeSucceeded
	case errors.Is(err, ErrInvalidRequest):
		return ExitCodeInvalidInput
	case IsCanceledError(err):
		return ExitCodeCancelled
	default:
		return ExitCodeFailed
	}
}

// DescribeOutcome returns a one-line human summary of a result.
func DescribeOutcome(res Result) string {
	st := res.State
	switch res.Job.Status {
	case types.JobStatusSucceeded:
		if res.Job.Kind == types.JobKindChat {
			return "response complete"
		}
		return fmt.Sprintf("scan complete: %d matches", len(st.Results))
	case types.JobStatusFailed:
		return fmt.Sprintf("%s failed: %s", res.Job.Kind, st.FailureReason)
	case types.JobStatusCancelled:
		if res.Job.Kind == types.JobKindScan {
			return fmt.Sprintf("scan cancelled: %d partial matches", len(st.Results))
		}
		return "chat cancelled"
	default:
		return fmt.Sprintf("%s %s", res.Job.Kind, res.Job.Status)
	}
}
