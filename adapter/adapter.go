// Package adapter defines the event-bus adapter boundary.
//
// Adapters publish job completion notifications to downstream systems. They
// notify; they do not store results.
package adapter

import (
	"context"
	"time"

	"github.com/xzemt/OmniAlpha/state"
	"github.com/xzemt/OmniAlpha/types"
)

// EventTypeJobCompleted is the event_type of every published event.
const EventTypeJobCompleted = "job_completed"

// JobCompletedEvent is the payload published when a job reaches a terminal
// status.
type JobCompletedEvent struct {
	ContractVersion string          `json:"contract_version"`
	EventType       string          `json:"event_type"` // always "job_completed"
	JobID           string          `json:"job_id"`
	Generation      uint64          `json:"generation"`
	Kind            types.JobKind   `json:"kind"`
	Status          types.JobStatus `json:"status"`
	Matches         int             `json:"matches"`
	ReportedErrors  int             `json:"reported_errors"`
	DecodeErrors    int             `json:"decode_errors"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	Timestamp       string          `json:"timestamp"` // RFC 3339, job end time
	DurationMs      int64           `json:"duration_ms"`
}

// NewJobCompletedEvent builds the event for the job held in st.
func NewJobCompletedEvent(st state.State) *JobCompletedEvent {
	job := st.Job
	ended := job.StartedAt
	if job.EndedAt != nil {
		ended = *job.EndedAt
	}
	return &JobCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeJobCompleted,
		JobID:           job.ID,
		Generation:      job.Generation,
		Kind:            job.Kind,
		Status:          job.Status,
		Matches:         len(st.Results),
		ReportedErrors:  st.ReportedErrors,
		DecodeErrors:    st.DecodeErrors,
		FailureReason:   st.FailureReason,
		Timestamp:       ended.UTC().Format(time.RFC3339Nano),
		DurationMs:      job.Duration().Milliseconds(),
	}
}

// Adapter publishes job completion events to a downstream system.
type Adapter interface {
	// Publish sends a job completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *JobCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
