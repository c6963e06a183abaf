// Package stream turns a chunked HTTP response body into decoded job events.
//
// A Splitter reassembles delimiter-bounded frames across arbitrary chunk
// boundaries; DecodeScanFrame and DecodeChatFrame interpret one frame each.
package stream

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame delimiters.
var (
	// LineDelimiter bounds NDJSON scan records.
	LineDelimiter = []byte("\n")
	// BlockDelimiter bounds event-stream chat blocks.
	BlockDelimiter = []byte("\n\n")
)

// MaxFrameSize bounds the carry-over buffer (1 MiB). A peer that sends more
// than this without a delimiter is not speaking the protocol.
const MaxFrameSize = 1 << 20

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorDecode indicates a frame that could not be parsed.
	FrameErrorDecode FrameErrorKind = iota
	// FrameErrorUnknownType indicates a well-formed record with an unknown discriminator.
	FrameErrorUnknownType
	// FrameErrorTooLarge indicates an undelimited residual exceeding MaxFrameSize.
	FrameErrorTooLarge
)

func (k FrameErrorKind) String() string {
	switch k {
	case FrameErrorDecode:
		return "decode"
	case FrameErrorUnknownType:
		return "unknown_type"
	case FrameErrorTooLarge:
		return "too_large"
	default:
		return fmt.Sprintf("FrameErrorKind(%d)", int(k))
	}
}

// FrameError represents a framing or decoding error.
type FrameError struct {
	Kind  FrameErrorKind
	Msg   string
	Frame string
	Err   error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if this error must terminate the job.
// Decode and unknown-type errors are contained to their frame.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// Splitter reassembles delimiter-bounded text frames from byte chunks.
// It is not safe for concurrent use.
type Splitter struct {
	delim     []byte
	normalize bool
	buf       []byte
}

// NewSplitter creates a splitter for the given delimiter.
// Block-delimited streams have CRLF line endings normalised to LF so that
// "\r\n\r\n" terminates a block like "\n\n".
func NewSplitter(delim []byte) *Splitter {
	if len(delim) == 0 {
		delim = LineDelimiter
	}
	return &Splitter{
		delim:     delim,
		normalize: len(delim) > 1,
	}
}

// NewLineSplitter returns a splitter for NDJSON streams.
func NewLineSplitter() *Splitter {
	return NewSplitter(LineDelimiter)
}

// NewBlockSplitter returns a splitter for event-stream blocks.
func NewBlockSplitter() *Splitter {
	return NewSplitter(BlockDelimiter)
}

// Feed appends chunk to the carry-over buffer and returns every complete
// frame, in order, without its delimiter. Empty frames are returned too.
// The trailing incomplete segment is retained for the next call.
func (s *Splitter) Feed(chunk []byte) ([]string, error) {
	s.buf = append(s.buf, chunk...)
	if s.normalize && bytes.IndexByte(s.buf, '\r') >= 0 {
		s.buf = normalizeCRLF(s.buf)
	}

	var frames []string
	for {
		i := bytes.Index(s.buf, s.delim)
		if i < 0 {
			break
		}
		frames = append(frames, string(s.buf[:i]))
		s.buf = s.buf[i+len(s.delim):]
	}

	// Compact so a long stream does not pin every consumed chunk.
	if len(s.buf) == 0 {
		s.buf = nil
	} else if cap(s.buf) > 2*len(s.buf)+4096 {
		s.buf = append([]byte(nil), s.buf...)
	}

	if len(s.buf) > MaxFrameSize {
		size := len(s.buf)
		s.buf = nil
		return frames, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("undelimited frame of %d bytes exceeds maximum %d", size, MaxFrameSize),
		}
	}

	return frames, nil
}

// Flush returns the non-empty residual buffer as a final frame, even though
// it carries no trailing delimiter, and resets the splitter.
func (s *Splitter) Flush() (string, bool) {
	if len(s.buf) == 0 {
		return "", false
	}
	frame := string(s.buf)
	s.buf = nil
	return frame, true
}

// Buffered returns the number of carried-over bytes.
func (s *Splitter) Buffered() int {
	return len(s.buf)
}

// normalizeCRLF rewrites "\r\n" to "\n". A trailing lone '\r' is kept so a
// CRLF split across chunks is normalised on the next Feed.
func normalizeCRLF(b []byte) []byte {
	out := b[:0]
	for i := 0; i < len(b); i++ {
		if b[i] == '\r' && i+1 < len(b) && b[i+1] == '\n' {
			continue
		}
		out = append(out, b[i])
	}
	return out
}
