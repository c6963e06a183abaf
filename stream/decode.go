package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xzemt/OmniAlpha/types"
)

// DecodeFunc interprets one frame. A nil event with a nil error means the
// frame carries nothing (blank line, comment-only block).
type DecodeFunc func(frame string) (types.Event, error)

// DecoderFor returns the splitter and decoder for a job kind.
func DecoderFor(kind types.JobKind) (*Splitter, DecodeFunc) {
	if kind == types.JobKindChat {
		return NewBlockSplitter(), DecodeChatFrame
	}
	return NewLineSplitter(), DecodeScanFrame
}

// scanTypeProbe is used to peek at the type field without full decode.
type scanTypeProbe struct {
	Type *string `json:"type"`
}

type metaRecord struct {
	Message string `json:"message"`
	Total   *int   `json:"total"`
}

type progressRecord struct {
	Current *int `json:"current"`
}

type matchRecord struct {
	Data json.RawMessage `json:"data"`
}

type errorRecord struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

type doneRecord struct {
	TotalScanned *int `json:"total_scanned"`
}

// DecodeScanFrame decodes one NDJSON scan record, discriminating on its
// "type" field. Blank frames decode to (nil, nil).
//
// Errors are always *FrameError with Kind FrameErrorDecode or
// FrameErrorUnknownType; neither is fatal to the stream.
func DecodeScanFrame(frame string) (types.Event, error) {
	line := strings.TrimSpace(frame)
	if line == "" {
		return nil, nil
	}
	payload := []byte(line)

	var probe scanTypeProbe
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, decodeError(frame, "failed to decode scan record", err)
	}
	if probe.Type == nil {
		return nil, decodeError(frame, "scan record has no type field", nil)
	}

	switch types.EventKind(*probe.Type) {
	case types.EventKindMeta:
		var rec metaRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, decodeError(frame, "failed to decode meta record", err)
		}
		return types.Meta{Message: rec.Message, Total: rec.Total}, nil

	case types.EventKindProgress:
		var rec progressRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, decodeError(frame, "failed to decode progress record", err)
		}
		if rec.Current == nil {
			return nil, decodeError(frame, "progress record has no current field", nil)
		}
		return types.Progress{Current: *rec.Current}, nil

	case types.EventKindMatch:
		var rec matchRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, decodeError(frame, "failed to decode match record", err)
		}
		data, err := decodeRecord(rec.Data)
		if err != nil {
			return nil, decodeError(frame, "failed to decode match data", err)
		}
		return types.Match{Record: data}, nil

	case types.EventKindError:
		var rec errorRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, decodeError(frame, "failed to decode error record", err)
		}
		return types.ReportedError{Message: rec.Message, Code: rawScalar(rec.Code)}, nil

	case types.EventKindDone:
		var rec doneRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, decodeError(frame, "failed to decode done record", err)
		}
		return types.Done{TotalScanned: rec.TotalScanned}, nil

	default:
		return nil, &FrameError{
			Kind:  FrameErrorUnknownType,
			Msg:   fmt.Sprintf("unknown scan record type %q", *probe.Type),
			Frame: frame,
		}
	}
}

// decodeRecord decodes a match payload, keeping numbers as json.Number so the
// record passes through without float rounding.
func decodeRecord(raw json.RawMessage) (types.Record, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("missing data object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return types.Record(rec), nil
}

// rawScalar renders a JSON string or number as plain text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func decodeError(frame, msg string, err error) *FrameError {
	return &FrameError{
		Kind:  FrameErrorDecode,
		Msg:   msg,
		Frame: frame,
		Err:   err,
	}
}

// DecodeChatFrame decodes one event-stream block. Comment lines and
// non-data fields are ignored; data lines are joined with "\n". A block
// without data decodes to (nil, nil). The [DONE] sentinel decodes to End.
func DecodeChatFrame(frame string) (types.Event, error) {
	var (
		data  []string
		found bool
	)
	for line := range strings.SplitSeq(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, "data:") {
			// Comments (":"), event:, id: and retry: carry nothing for us.
			continue
		}
		found = true
		value := strings.TrimPrefix(line, "data:")
		value = strings.TrimPrefix(value, " ")
		data = append(data, value)
	}
	if !found {
		return nil, nil
	}

	payload := strings.Join(data, "\n")
	if strings.TrimSpace(payload) == types.ChatDoneSentinel {
		return types.End{}, nil
	}
	return types.Fragment{Text: payload}, nil
}
