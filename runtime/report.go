package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xzemt/OmniAlpha/metrics"
	"github.com/xzemt/OmniAlpha/types"
)

// JobReport is the structured JSON report written by --report.
type JobReport struct {
	JobID      string          `json:"job_id"`
	Generation uint64          `json:"generation"`
	Kind       types.JobKind   `json:"kind"`
	Status     types.JobStatus `json:"status"`
	Message    string          `json:"message"`
	ExitCode   int             `json:"exit_code"`
	DurationMs int64           `json:"duration_ms"`

	Progress       types.ProgressState `json:"progress"`
	Matches        int                 `json:"matches"`
	ReportedErrors int                 `json:"reported_errors"`
	DecodeErrors   int                 `json:"decode_errors"`
	FailureReason  string              `json:"failure_reason,omitempty"`

	Metrics *metrics.Snapshot `json:"metrics"`
}

// BuildJobReport composes a JobReport from a Result and metrics snapshot.
// The exitCode is the process exit code that will be returned to the caller.
func BuildJobReport(res Result, snap metrics.Snapshot, exitCode int) *JobReport {
	st := res.State
	return &JobReport{
		JobID:          res.Job.ID,
		Generation:     res.Job.Generation,
		Kind:           res.Job.Kind,
		Status:         res.Job.Status,
		Message:        DescribeOutcome(res),
		ExitCode:       exitCode,
		DurationMs:     res.Job.Duration().Milliseconds(),
		Progress:       st.Progress,
		Matches:        len(st.Results),
		ReportedErrors: st.ReportedErrors,
		DecodeErrors:   st.DecodeErrors,
		FailureReason:  st.FailureReason,
		Metrics:        &snap,
	}
}

// WriteJobReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteJobReport(report *JobReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeJobReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := writeJobReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return f.Close()
}

func writeJobReportTo(report *JobReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
