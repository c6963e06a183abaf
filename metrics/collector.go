// Package metrics provides per-session stream metrics.
//
// The Collector accumulates counters across the jobs of one session. It is a
// leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Job lifecycle
	JobsStarted   int64 `json:"jobs_started"`
	JobsSucceeded int64 `json:"jobs_succeeded"`
	JobsFailed    int64 `json:"jobs_failed"`
	JobsCancelled int64 `json:"jobs_cancelled"`

	// Stream
	BytesRead     int64 `json:"bytes_read"`
	FramesDecoded int64 `json:"frames_decoded"`
	DecodeErrors  int64 `json:"decode_errors"`
	StaleEvents   int64 `json:"stale_events"`

	// Events
	Matches        int64 `json:"matches"`
	ReportedErrors int64 `json:"reported_errors"`
	Fragments      int64 `json:"fragments"`

	// Dimensions (informational, set at construction)
	Kind    string `json:"kind"`
	BaseURL string `json:"base_url"`
}

// Collector accumulates metrics during a session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	jobsStarted   int64
	jobsSucceeded int64
	jobsFailed    int64
	jobsCancelled int64

	bytesRead     int64
	framesDecoded int64
	decodeErrors  int64
	staleEvents   int64

	matches        int64
	reportedErrors int64
	fragments      int64

	kind    string
	baseURL string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(kind, baseURL string) *Collector {
	return &Collector{
		kind:    kind,
		baseURL: baseURL,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Job lifecycle ---

// IncJobStarted records a job start.
func (c *Collector) IncJobStarted() {
	if c == nil {
		return
	}
	c.add(&c.jobsStarted, 1)
}

// IncJobSucceeded records a job that reached succeeded.
func (c *Collector) IncJobSucceeded() {
	if c == nil {
		return
	}
	c.add(&c.jobsSucceeded, 1)
}

// IncJobFailed records a job that reached failed.
func (c *Collector) IncJobFailed() {
	if c == nil {
		return
	}
	c.add(&c.jobsFailed, 1)
}

// IncJobCancelled records a job that reached cancelled.
func (c *Collector) IncJobCancelled() {
	if c == nil {
		return
	}
	c.add(&c.jobsCancelled, 1)
}

// --- Stream ---

// AddBytesRead records bytes read from a response body.
func (c *Collector) AddBytesRead(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.add(&c.bytesRead, int64(n))
}

// IncFramesDecoded records a frame that decoded to an event.
func (c *Collector) IncFramesDecoded() {
	if c == nil {
		return
	}
	c.add(&c.framesDecoded, 1)
}

// IncDecodeErrors records a frame that failed to decode.
func (c *Collector) IncDecodeErrors() {
	if c == nil {
		return
	}
	c.add(&c.decodeErrors, 1)
}

// IncStaleEvents records an event rejected because its job was no longer current.
func (c *Collector) IncStaleEvents() {
	if c == nil {
		return
	}
	c.add(&c.staleEvents, 1)
}

// --- Events ---

// IncMatches records a folded scan match.
func (c *Collector) IncMatches() {
	if c == nil {
		return
	}
	c.add(&c.matches, 1)
}

// IncReportedErrors records a folded server-reported item error.
func (c *Collector) IncReportedErrors() {
	if c == nil {
		return
	}
	c.add(&c.reportedErrors, 1)
}

// IncFragments records a folded chat fragment.
func (c *Collector) IncFragments() {
	if c == nil {
		return
	}
	c.add(&c.fragments, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		JobsStarted:   c.jobsStarted,
		JobsSucceeded: c.jobsSucceeded,
		JobsFailed:    c.jobsFailed,
		JobsCancelled: c.jobsCancelled,

		BytesRead:     c.bytesRead,
		FramesDecoded: c.framesDecoded,
		DecodeErrors:  c.decodeErrors,
		StaleEvents:   c.staleEvents,

		Matches:        c.matches,
		ReportedErrors: c.reportedErrors,
		Fragments:      c.fragments,

		Kind:    c.kind,
		BaseURL: c.baseURL,
	}
}
