package types

import "time"

// JobKind identifies which streaming protocol a job speaks.
type JobKind string

const (
	// JobKindScan is a multi-strategy stock scan (NDJSON).
	JobKindScan JobKind = "scan"
	// JobKindChat is an AI chat completion (event-stream).
	JobKindChat JobKind = "chat"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal returns true if the status is a sink state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is one in-flight or completed streaming operation.
type Job struct {
	// ID is an opaque, session-local identifier.
	ID string `json:"id" msgpack:"id"`
	// Generation is the session's monotonically increasing job token.
	// Events folded for a stale generation are rejected.
	Generation uint64    `json:"generation" msgpack:"generation"`
	Kind       JobKind   `json:"kind" msgpack:"kind"`
	Status     JobStatus `json:"status" msgpack:"status"`
	StartedAt  time.Time `json:"started_at" msgpack:"started_at"`
	// EndedAt is set when the job reaches a terminal status.
	EndedAt *time.Time `json:"ended_at,omitempty" msgpack:"ended_at,omitempty"`
}

// Running returns true if the job currently owns the session state.
func (j Job) Running() bool {
	return j.Status == JobStatusRunning
}

// Duration returns the wall time of a finished job, or zero while running.
func (j Job) Duration() time.Duration {
	if j.EndedAt == nil {
		return 0
	}
	return j.EndedAt.Sub(j.StartedAt)
}

// ProgressState is the scan progress counter.
type ProgressState struct {
	Current int `json:"current" msgpack:"current"`
	Total   int `json:"total" msgpack:"total"`
	// TotalKnown is false until a meta event declares a total.
	TotalKnown bool `json:"total_known" msgpack:"total_known"`
}

// Clamped returns Current clamped to [0, Total]. Without a known total the
// raw counter is returned (floored at zero).
func (p ProgressState) Clamped() int {
	c := max(p.Current, 0)
	if p.TotalKnown {
		c = min(c, max(p.Total, 0))
	}
	return c
}

// Percent returns completion in [0, 100], or 0 when no positive total is known.
func (p ProgressState) Percent() float64 {
	if !p.TotalKnown || p.Total <= 0 {
		return 0
	}
	return float64(p.Clamped()) * 100 / float64(p.Total)
}
