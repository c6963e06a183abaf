package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xzemt/OmniAlpha/log"
	"github.com/xzemt/OmniAlpha/metrics"
	"github.com/xzemt/OmniAlpha/stream"
	"github.com/xzemt/OmniAlpha/types"
)

// DefaultReadBuffer is the response body read size.
const DefaultReadBuffer = 32 << 10

// IngestionError classifies ingestion errors for outcome determination.
type IngestionError struct {
	// Kind indicates whether the job failed or was cancelled.
	Kind IngestionErrorKind
	// Err is the underlying error.
	Err error
}

// IngestionErrorKind classifies ingestion errors.
type IngestionErrorKind int

const (
	// IngestionErrorTransport covers open failures, non-2xx responses, read
	// errors and oversized frames (failed outcome).
	IngestionErrorTransport IngestionErrorKind = iota
	// IngestionErrorCanceled indicates context cancellation (cancelled outcome).
	IngestionErrorCanceled
)

func (e *IngestionError) Error() string {
	return e.Err.Error()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorCanceled
	}
	return false
}

// IsTransportError returns true if the error is a transport failure.
func IsTransportError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorTransport
	}
	return false
}

func canceled(ctx context.Context) *IngestionError {
	return &IngestionError{Kind: IngestionErrorCanceled, Err: context.Cause(ctx)}
}

// Sink receives the decoded events of one job.
// Both methods report whether the job still accepts events; false stops the
// engine without error.
type Sink interface {
	Apply(ev types.Event) bool
	DecodeFailed(err *stream.FrameError) bool
}

// IngestionEngine reads one response body, reassembles frames and hands each
// decoded event to a Sink in arrival order.
//   - Frames are decoded in order; a frame that fails to decode is counted and
//     skipped, the stream continues
//   - The first terminal event stops reading; nothing after it is decoded
//   - A chunk read after the context was cancelled is discarded unprocessed,
//     and so are the remaining frames of a chunk once cancellation is seen
//   - An oversized frame is fatal (no resync)
type IngestionEngine struct {
	body      io.Reader
	splitter  *stream.Splitter
	decode    stream.DecodeFunc
	sink      Sink
	logger    *log.Logger
	collector *metrics.Collector
	bufSize   int
	frames    int64
	stopped   bool
}

// NewIngestionEngine creates an engine for a job of the given kind.
func NewIngestionEngine(
	body io.Reader,
	kind types.JobKind,
	sink Sink,
	logger *log.Logger,
	collector *metrics.Collector,
	bufSize int,
) *IngestionEngine {
	if bufSize <= 0 {
		bufSize = DefaultReadBuffer
	}
	splitter, decode := stream.DecoderFor(kind)
	return &IngestionEngine{
		body:      body,
		splitter:  splitter,
		decode:    decode,
		sink:      sink,
		logger:    logger,
		collector: collector,
		bufSize:   bufSize,
	}
}

// Run runs the ingestion loop until the sink stops accepting, EOF, or a
// fatal error.
// Returns:
//   - nil: the sink stopped accepting, or the stream ended (residual flushed)
//   - *IngestionError with Kind=IngestionErrorTransport: read or framing failure
//   - *IngestionError with Kind=IngestionErrorCanceled: context canceled
func (e *IngestionEngine) Run(ctx context.Context) error {
	buf := make([]byte, e.bufSize)
	for {
		if ctx.Err() != nil {
			return canceled(ctx)
		}

		n, readErr := e.body.Read(buf)
		if n > 0 {
			// In-flight chunk of a cancelled job.
			if ctx.Err() != nil {
				e.logger.Debug("discarding chunk after cancel", map[string]any{"bytes": n})
				return canceled(ctx)
			}
			e.collector.AddBytesRead(n)

			frames, feedErr := e.splitter.Feed(buf[:n])
			for i, frame := range frames {
				if ctx.Err() != nil {
					e.logger.Debug("discarding frames after cancel", map[string]any{"frames": len(frames) - i})
					return canceled(ctx)
				}
				if !e.process(frame) {
					return nil
				}
			}
			if feedErr != nil {
				e.logger.Error("frame error", map[string]any{"error": feedErr.Error()})
				return &IngestionError{
					Kind: IngestionErrorTransport,
					Err:  fmt.Errorf("frame error: %w", feedErr),
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if frame, ok := e.splitter.Flush(); ok {
					if ctx.Err() != nil {
						return canceled(ctx)
					}
					e.process(frame)
				}
				e.logger.Debug("stream ended", map[string]any{"frames": e.frames})
				return nil
			}
			// Cancelling the request context surfaces as a read error.
			if ctx.Err() != nil {
				return canceled(ctx)
			}
			e.logger.Error("read error", map[string]any{"error": readErr.Error()})
			return &IngestionError{
				Kind: IngestionErrorTransport,
				Err:  fmt.Errorf("read stream: %w", readErr),
			}
		}
	}
}

// Stopped reports whether Run returned because the sink stopped accepting.
func (e *IngestionEngine) Stopped() bool {
	return e.stopped
}

// process decodes one frame and hands the result to the sink.
func (e *IngestionEngine) process(frame string) bool {
	e.frames++
	ev, err := e.decode(frame)
	if err != nil {
		var frameErr *stream.FrameError
		if !errors.As(err, &frameErr) {
			frameErr = &stream.FrameError{Kind: stream.FrameErrorDecode, Msg: "decode failed", Frame: frame, Err: err}
		}
		e.logger.Warn("frame decode error", map[string]any{
			"kind":  frameErr.Kind.String(),
			"error": frameErr.Error(),
		})
		e.collector.IncDecodeErrors()
		return e.accept(e.sink.DecodeFailed(frameErr))
	}
	if ev == nil {
		return true
	}

	e.collector.IncFramesDecoded()
	return e.accept(e.sink.Apply(ev))
}

func (e *IngestionEngine) accept(live bool) bool {
	if !live {
		e.stopped = true
	}
	return live
}
