package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/xzemt/OmniAlpha/types"
)

// ErrJobRunning is returned by Start while another job owns the state.
// The caller must cancel it and wait for its loop to stop first.
var ErrJobRunning = errors.New("a job is already running")

// Start moves s to a new running job. Results, progress and per-job
// counters are cleared; the activity log and chat transcript are kept.
// For chat jobs prompt is appended to the transcript as the user turn.
func Start(s State, job types.Job, prompt string, at time.Time) (State, error) {
	if s.Job.Running() {
		return s, fmt.Errorf("%w: %s", ErrJobRunning, s.Job.ID)
	}
	if job.Generation <= s.Job.Generation {
		return s, fmt.Errorf("generation %d does not advance past %d", job.Generation, s.Job.Generation)
	}

	job.Status = types.JobStatusRunning
	job.StartedAt = at
	job.EndedAt = nil

	next := State{
		Job:        job,
		Logs:       s.Logs,
		Transcript: s.Transcript,
	}

	switch job.Kind {
	case types.JobKindChat:
		next.Transcript = append(cloneTranscript(s.Transcript), types.ChatMessage{
			Role:       types.RoleUser,
			Content:    prompt,
			Timestamp:  at,
			Generation: job.Generation,
		})
	default:
		next.Logs = pushLog(s.Logs, types.LogLevelInfo, "starting scan", at)
	}

	return next, nil
}

// Finish moves the running job gen to a terminal status. It is a no-op if
// the job already left running, so the terminal status is set exactly once.
//
// A failed job records reason in the activity log; a cancelled job is
// silent. Partial results and transcript are retained.
func Finish(s State, gen uint64, status types.JobStatus, reason string, at time.Time) State {
	if !s.Accepts(gen) || !status.IsTerminal() {
		return s
	}
	if status == types.JobStatusFailed {
		if reason == "" {
			reason = "job failed"
		}
		s.FailureReason = reason
		s.Logs = pushLog(s.Logs, types.LogLevelError, reason, at)
	}
	return terminate(s, status, at)
}

// EndOfStream handles a body that ended without a terminator. If a total was
// declared and fewer items were processed the job fails, otherwise it
// succeeds.
func EndOfStream(s State, gen uint64, at time.Time) State {
	if !s.Accepts(gen) {
		return s
	}
	p := s.Progress
	if p.TotalKnown && p.Current < p.Total {
		return Finish(s, gen, types.JobStatusFailed,
			fmt.Sprintf("stream ended before done (%d/%d processed, %d matches)", p.Current, p.Total, len(s.Results)), at)
	}
	if s.Job.Kind == types.JobKindScan {
		s.Logs = pushLog(s.Logs, types.LogLevelSuccess,
			fmt.Sprintf("scan complete: %d matches", len(s.Results)), at)
	}
	return terminate(s, types.JobStatusSucceeded, at)
}

func terminate(s State, status types.JobStatus, at time.Time) State {
	s.Job.Status = status
	ended := at
	s.Job.EndedAt = &ended
	return s
}

func cloneTranscript(t []types.ChatMessage) []types.ChatMessage {
	out := make([]types.ChatMessage, len(t), len(t)+1)
	copy(out, t)
	return out
}
