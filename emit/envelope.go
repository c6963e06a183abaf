// Package emit re-emits the accepted events of a session as a typed stream
// that another process can consume.
//
// Two formats are supported: JSON lines, and msgpack payloads behind a 4-byte
// big-endian length prefix. Every envelope carries a per-writer sequence
// number starting at 1; the last envelope of a job is a job_result.
package emit

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/xzemt/OmniAlpha/types"
)

// JobResultType is the type discriminant of the per-job result envelope.
const JobResultType = "job_result"

// Format selects the wire format.
type Format string

const (
	FormatJSONL   Format = "jsonl"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a format name. Empty selects JSON lines.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSONL:
		return FormatJSONL, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown emit format %q (must be jsonl or msgpack)", s)
	}
}

// Envelope wraps one emitted event or job result.
type Envelope struct {
	ContractVersion string          `json:"contract_version" msgpack:"contract_version"`
	Seq             int64           `json:"seq" msgpack:"seq"`
	Type            string          `json:"type" msgpack:"type"`
	JobID           string          `json:"job_id" msgpack:"job_id"`
	Generation      uint64          `json:"generation" msgpack:"generation"`
	Kind            types.JobKind   `json:"kind" msgpack:"kind"`
	Status          types.JobStatus `json:"status" msgpack:"status"`
	Payload         map[string]any  `json:"payload" msgpack:"payload"`
}

// IsJobResult returns true for the per-job result envelope.
func (e *Envelope) IsJobResult() bool {
	return e.Type == JobResultType
}

// eventPayload flattens an event into its wire payload.
func eventPayload(ev types.Event) map[string]any {
	p := map[string]any{}
	switch e := ev.(type) {
	case types.Meta:
		p["message"] = e.Message
		if e.Total != nil {
			p["total"] = *e.Total
		}
	case types.Progress:
		p["current"] = e.Current
	case types.Match:
		p["data"] = map[string]any(e.Record)
	case types.ReportedError:
		p["message"] = e.Message
		if e.Code != "" {
			p["code"] = e.Code
		}
	case types.Done:
		if e.TotalScanned != nil {
			p["total_scanned"] = *e.TotalScanned
		}
	case types.Fragment:
		p["text"] = e.Text
	}
	return p
}

// Event reconstructs the typed event carried by an envelope.
// Returns an error for job_result envelopes and unknown types.
func (e *Envelope) Event() (types.Event, error) {
	p := e.Payload
	switch types.EventKind(e.Type) {
	case types.EventKindMeta:
		ev := types.Meta{Message: stringField(p, "message")}
		if v, ok := p["total"]; ok {
			n, err := toInt(v)
			if err != nil {
				return nil, fmt.Errorf("meta total: %w", err)
			}
			ev.Total = &n
		}
		return ev, nil
	case types.EventKindProgress:
		n, err := toInt(p["current"])
		if err != nil {
			return nil, fmt.Errorf("progress current: %w", err)
		}
		return types.Progress{Current: n}, nil
	case types.EventKindMatch:
		data, ok := p["data"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("match data has type %T, want object", p["data"])
		}
		return types.Match{Record: types.Record(data)}, nil
	case types.EventKindError:
		return types.ReportedError{Message: stringField(p, "message"), Code: stringField(p, "code")}, nil
	case types.EventKindDone:
		ev := types.Done{}
		if v, ok := p["total_scanned"]; ok {
			n, err := toInt(v)
			if err != nil {
				return nil, fmt.Errorf("done total_scanned: %w", err)
			}
			ev.TotalScanned = &n
		}
		return ev, nil
	case types.EventKindFragment:
		return types.Fragment{Text: stringField(p, "text")}, nil
	case types.EventKindEnd:
		return types.End{}, nil
	default:
		return nil, fmt.Errorf("envelope type %q carries no event", e.Type)
	}
}

// msgpackValue returns v with every json.Number replaced by an int64, or a
// float64 when it is not an integer. msgpack would otherwise encode the
// numbers of a match record as strings. Maps and slices are copied, never
// modified in place.
func msgpackValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = msgpackValue(e)
		}
		return out
	case types.Record:
		return msgpackValue(map[string]any(x))
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = msgpackValue(e)
		}
		return out
	default:
		return v
	}
}

func stringField(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

// toInt accepts every integer encoding msgpack may choose for a value, plus
// the float64 and json.Number forms produced by JSON decoding.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, fmt.Errorf("value %d overflows int", n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("invalid integer type %T", v)
	}
}
