// Package state holds the per-session job state and the pure fold that
// advances it.
//
// Every function in this package takes a State and returns a new State; the
// input is never modified and the result shares no mutable backing array with
// it. Timestamps are supplied by the caller, so folding the same events with
// the same times always yields the same state.
package state

import (
	"fmt"
	"slices"
	"time"

	"github.com/xzemt/OmniAlpha/types"
)

// MaxLogEntries caps the activity log. Older entries are dropped.
const MaxLogEntries = 50

// State is a consumer-visible snapshot of a session.
type State struct {
	// Job is the current (or most recent) job.
	Job types.Job `json:"job" yaml:"job"`
	// Results holds scan matches in arrival order.
	Results []types.Record `json:"results" yaml:"results"`
	// Progress is the scan progress counter.
	Progress types.ProgressState `json:"progress" yaml:"progress"`
	// Logs is the activity log, most recent first.
	Logs []types.LogEntry `json:"logs" yaml:"logs"`
	// Transcript is the chat history across jobs.
	Transcript []types.ChatMessage `json:"transcript" yaml:"transcript"`
	// DecodeErrors counts frames of the current job that failed to decode.
	DecodeErrors int `json:"decode_errors" yaml:"decode_errors"`
	// ReportedErrors counts server-reported item errors of the current job.
	ReportedErrors int `json:"reported_errors" yaml:"reported_errors"`
	// FailureReason is set when the current job failed.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
}

// Idle returns the initial state of a session.
func Idle() State {
	return State{Job: types.Job{Status: types.JobStatusIdle}}
}

// Accepts reports whether events for generation gen may still mutate s.
func (s State) Accepts(gen uint64) bool {
	return s.Job.Running() && s.Job.Generation == gen
}

// Clone returns a deep copy of s. Records are copied shallowly.
func (s State) Clone() State {
	out := s
	if s.Job.EndedAt != nil {
		ended := *s.Job.EndedAt
		out.Job.EndedAt = &ended
	}
	if s.Results != nil {
		out.Results = make([]types.Record, len(s.Results))
		for i, r := range s.Results {
			out.Results[i] = r.Clone()
		}
	}
	out.Logs = slices.Clone(s.Logs)
	out.Transcript = slices.Clone(s.Transcript)
	return out
}

// Apply folds one event into s for job generation gen.
//
// Events for a generation that is not the running job are ignored, so a
// terminal state is never mutated and a stale loop cannot touch a newer job.
// Done and End move the job to succeeded.
func Apply(s State, gen uint64, ev types.Event, at time.Time) State {
	if ev == nil || !s.Accepts(gen) {
		return s
	}

	switch e := ev.(type) {
	case types.Meta:
		if e.Message != "" {
			s.Logs = pushLog(s.Logs, types.LogLevelInfo, e.Message, at)
		}
		if e.Total != nil && !s.Progress.TotalKnown {
			s.Progress.Total = *e.Total
			s.Progress.TotalKnown = true
		}

	case types.Progress:
		// Out-of-order progress is ignored.
		if e.Current >= s.Progress.Current {
			s.Progress.Current = e.Current
		}

	case types.Match:
		s.Results = append(slices.Clip(s.Results), e.Record)

	case types.ReportedError:
		s.ReportedErrors++
		msg := "error: " + e.Message
		if e.Code != "" {
			msg = fmt.Sprintf("error: %s: %s", e.Code, e.Message)
		}
		s.Logs = pushLog(s.Logs, types.LogLevelError, msg, at)

	case types.Done:
		s.Logs = pushLog(s.Logs, types.LogLevelSuccess,
			fmt.Sprintf("scan complete: %d matches", len(s.Results)), at)
		s = terminate(s, types.JobStatusSucceeded, at)

	case types.Fragment:
		s.Transcript = appendFragment(s.Transcript, gen, e.Text, at)

	case types.End:
		s.Logs = pushLog(s.Logs, types.LogLevelSuccess, "response complete", at)
		s = terminate(s, types.JobStatusSucceeded, at)
	}

	return s
}

// ApplyAll folds events in order. It is the reference fold for the session.
func ApplyAll(s State, gen uint64, events []types.Event, at time.Time) State {
	for _, ev := range events {
		s = Apply(s, gen, ev, at)
	}
	return s
}

// DecodeFailed records a frame that failed to decode. The job keeps running.
func DecodeFailed(s State, gen uint64) State {
	if !s.Accepts(gen) {
		return s
	}
	s.DecodeErrors++
	return s
}

// appendFragment concatenates text onto the running generation's assistant
// turn, starting a new turn if the last entry is anything else.
func appendFragment(transcript []types.ChatMessage, gen uint64, text string, at time.Time) []types.ChatMessage {
	out := slices.Clone(transcript)
	if n := len(out); n > 0 && out[n-1].Role == types.RoleAssistant && out[n-1].Generation == gen {
		out[n-1].Content += text
		return out
	}
	return append(out, types.ChatMessage{
		Role:       types.RoleAssistant,
		Content:    text,
		Timestamp:  at,
		Generation: gen,
	})
}

// pushLog prepends an entry, keeping at most MaxLogEntries.
func pushLog(logs []types.LogEntry, level types.LogLevel, msg string, at time.Time) []types.LogEntry {
	n := min(len(logs), MaxLogEntries-1)
	out := make([]types.LogEntry, 0, n+1)
	out = append(out, types.LogEntry{Level: level, Message: msg, Timestamp: at})
	return append(out, logs[:n]...)
}
