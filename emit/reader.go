package emit

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Reader reads envelopes written by a Writer.
type Reader struct {
	format Format
	frames *FrameDecoder
	lines  *json.Decoder
}

// NewReader creates a Reader for the given format.
func NewReader(r io.Reader, format Format) (*Reader, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	rd := &Reader{format: format}
	if format == FormatMsgpack {
		rd.frames = NewFrameDecoder(r)
	} else {
		rd.lines = json.NewDecoder(r)
		rd.lines.UseNumber()
	}
	return rd, nil
}

// Next returns the next envelope, or io.EOF at a clean end of stream.
// A payload that fails to decode is a *FrameError with Kind=FrameErrorDecode.
func (r *Reader) Next() (*Envelope, error) {
	var env Envelope
	if r.format == FormatMsgpack {
		payload, err := r.frames.ReadFrame()
		if err != nil {
			return nil, err
		}
		if err := msgpack.Unmarshal(payload, &env); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode envelope", Err: err}
		}
		return &env, nil
	}

	if err := r.lines.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		// A type mismatch consumes the value; a syntax error cannot be resynced.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode envelope line", Err: err}
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "malformed envelope line", Err: err}
	}
	return &env, nil
}
