package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xzemt/OmniAlpha/iox"
	"github.com/xzemt/OmniAlpha/log"
	"github.com/xzemt/OmniAlpha/metrics"
	"github.com/xzemt/OmniAlpha/state"
	"github.com/xzemt/OmniAlpha/stream"
	"github.com/xzemt/OmniAlpha/types"
)

// ErrInvalidRequest wraps request validation failures. No state changes
// and no request is sent when it is returned.
var ErrInvalidRequest = errors.New("invalid request")

// Transport opens the streaming response bodies for jobs.
// Implemented by *client.Client.
type Transport interface {
	OpenScan(ctx context.Context, req *types.ScanRequest) (io.ReadCloser, error)
	OpenChat(ctx context.Context, req *types.ChatRequest) (io.ReadCloser, error)
}

// Observer receives the events of every job of a session.
//
// Both methods are called from the job's loop goroutine in fold order.
// OnTerminal is called exactly once per job, after its last OnEvent and
// before Handle.Done is closed, so Cancel and the next Start wait for it to
// return. Slow work such as network publishing belongs on another goroutine
// (see Notifier). Observers must not call Start or Cancel synchronously on
// the session they observe.
type Observer interface {
	// OnEvent is called for each event the job accepted. job reflects the
	// state after the fold.
	OnEvent(job types.Job, ev types.Event)
	// OnTerminal is called once the job reached a terminal status.
	OnTerminal(res Result)
}

// Result is the outcome of one job.
type Result struct {
	// Job is the final job record.
	Job types.Job
	// State is the session snapshot taken when the job ended.
	State state.State
	// Err is the cause of a failed or cancelled job, nil on success.
	Err error
}

// Status returns the job's terminal status.
func (r Result) Status() types.JobStatus {
	return r.Job.Status
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// Transport opens job streams (required).
	Transport Transport
	// Logger receives diagnostics. Defaults to log.Nop().
	Logger *log.Logger
	// Collector accumulates metrics. May be nil.
	Collector *metrics.Collector
	// Observer is notified of accepted events and job results. May be nil.
	Observer Observer
	// Clock stamps log and transcript entries. Defaults to time.Now.
	Clock func() time.Time
	// ReadBuffer is the body read size (default 32 KiB).
	ReadBuffer int
}

// Session runs at most one job at a time and owns the state it folds into.
//
// Starting a job cancels the running one and waits for its loop to stop
// before the state is reset, so no event of an older job can land in a newer
// one. Every fold also checks the job generation.
type Session struct {
	config SessionConfig

	// startMu serialises Start and Cancel.
	startMu sync.Mutex

	// mu guards the fields below.
	mu     sync.Mutex
	st     state.State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession creates an idle session.
func NewSession(config SessionConfig) (*Session, error) {
	if config.Transport == nil {
		return nil, errors.New("session requires a transport")
	}
	if config.Logger == nil {
		config.Logger = log.Nop()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.ReadBuffer <= 0 {
		config.ReadBuffer = DefaultReadBuffer
	}
	return &Session{config: config, st: state.Idle()}, nil
}

// Handle refers to one started job.
type Handle struct {
	job    types.Job
	done   chan struct{}
	result Result
}

// Job returns the job as it was when started.
func (h *Handle) Job() types.Job {
	return h.job
}

// Done is closed when the job's loop has stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job ends or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// StartScan validates req, cancels any running job and starts a scan.
func (s *Session) StartScan(ctx context.Context, req *types.ScanRequest) (*Handle, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	scan := *req
	return s.start(ctx, types.JobKindScan, "", func(ctx context.Context) (io.ReadCloser, error) {
		return s.config.Transport.OpenScan(ctx, &scan)
	})
}

// StartChat validates req, cancels any running job and starts a chat.
// The message is appended to the transcript as the user turn.
func (s *Session) StartChat(ctx context.Context, req *types.ChatRequest) (*Handle, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	chat := *req
	return s.start(ctx, types.JobKindChat, chat.Message, func(ctx context.Context) (io.ReadCloser, error) {
		return s.config.Transport.OpenChat(ctx, &chat)
	})
}

// Cancel aborts the running job, if any, and waits for its loop to stop.
// The job ends cancelled with its partial results retained.
func (s *Session) Cancel() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	s.cancelAndWait()
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

type openFunc func(ctx context.Context) (io.ReadCloser, error)

func (s *Session) start(ctx context.Context, kind types.JobKind, prompt string, open openFunc) (*Handle, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.cancelAndWait()

	s.mu.Lock()
	job := types.Job{
		ID:         uuid.NewString(),
		Generation: s.st.Job.Generation + 1,
		Kind:       kind,
	}
	next, err := state.Start(s.st, job, prompt, s.config.Clock())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.st = next
	jobCtx, cancel := context.WithCancel(ctx)
	h := &Handle{job: next.Job, done: make(chan struct{})}
	s.cancel, s.done = cancel, h.done
	s.mu.Unlock()

	s.config.Collector.IncJobStarted()
	s.config.Logger.ForJob(h.job).Info("job started", nil)

	go s.run(jobCtx, cancel, h, open)
	return h, nil
}

// cancelAndWait must be called with startMu held.
func (s *Session) cancelAndWait() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run is the job loop. It owns the response body.
func (s *Session) run(ctx context.Context, cancel context.CancelFunc, h *Handle, open openFunc) {
	defer close(h.done)
	defer cancel()

	logger := s.config.Logger.ForJob(h.job)
	sink := &jobSink{session: s, ctx: ctx, gen: h.job.Generation}

	var runErr error
	body, err := open(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		runErr = canceled(ctx)
	case err != nil:
		logger.Error("open stream failed", map[string]any{"error": err.Error()})
		runErr = &IngestionError{Kind: IngestionErrorTransport, Err: fmt.Errorf("open stream: %w", err)}
	default:
		engine := NewIngestionEngine(body, h.job.Kind, sink, logger, s.config.Collector, s.config.ReadBuffer)
		runErr = engine.Run(ctx)
		iox.DiscardClose(body)
	}

	h.result = s.finish(h.job.Generation, runErr)
	s.record(logger, h.result)

	if s.config.Observer != nil {
		s.config.Observer.OnTerminal(h.result)
	}
}

// finish moves the job to its terminal status and snapshots the state.
func (s *Session) finish(gen uint64, runErr error) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Clock()
	switch {
	case runErr == nil:
		s.st = state.EndOfStream(s.st, gen, now)
	case IsCanceledError(runErr):
		s.st = state.Finish(s.st, gen, types.JobStatusCancelled, runErr.Error(), now)
	default:
		s.st = state.Finish(s.st, gen, types.JobStatusFailed, runErr.Error(), now)
	}

	if s.st.Job.Status == types.JobStatusFailed && runErr == nil {
		runErr = &IngestionError{Kind: IngestionErrorTransport, Err: errors.New(s.st.FailureReason)}
	}
	if s.st.Job.Status == types.JobStatusSucceeded {
		runErr = nil
	}
	snap := s.st.Clone()
	return Result{Job: snap.Job, State: snap, Err: runErr}
}

func (s *Session) record(logger *log.Logger, res Result) {
	fields := map[string]any{
		"status":      string(res.Job.Status),
		"duration_ms": res.Job.Duration().Milliseconds(),
		"matches":     len(res.State.Results),
	}
	switch res.Job.Status {
	case types.JobStatusSucceeded:
		s.config.Collector.IncJobSucceeded()
		logger.Info("job finished", fields)
	case types.JobStatusFailed:
		s.config.Collector.IncJobFailed()
		fields["reason"] = res.State.FailureReason
		logger.Error("job finished", fields)
	case types.JobStatusCancelled:
		s.config.Collector.IncJobCancelled()
		logger.Info("job finished", fields)
	}
}

// jobSink folds events into the session state for one generation.
// Once ctx is done it rejects every event, so a frame decoded after
// cancellation never reaches the state.
type jobSink struct {
	session *Session
	ctx     context.Context
	gen     uint64
}

// live must be called with session.mu held.
func (k *jobSink) live() bool {
	return k.ctx.Err() == nil && k.session.st.Accepts(k.gen)
}

func (k *jobSink) Apply(ev types.Event) bool {
	s := k.session
	s.mu.Lock()
	if !k.live() {
		s.mu.Unlock()
		s.config.Collector.IncStaleEvents()
		return false
	}
	s.st = state.Apply(s.st, k.gen, ev, s.config.Clock())
	job := s.st.Job
	live := s.st.Accepts(k.gen)
	s.mu.Unlock()

	switch ev.(type) {
	case types.Match:
		s.config.Collector.IncMatches()
	case types.ReportedError:
		s.config.Collector.IncReportedErrors()
	case types.Fragment:
		s.config.Collector.IncFragments()
	}
	if s.config.Observer != nil {
		s.config.Observer.OnEvent(job, ev)
	}
	return live
}

func (k *jobSink) DecodeFailed(_ *stream.FrameError) bool {
	s := k.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if !k.live() {
		s.config.Collector.IncStaleEvents()
		return false
	}
	s.st = state.DecodeFailed(s.st, k.gen)
	return true
}
