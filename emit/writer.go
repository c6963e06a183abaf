package emit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/xzemt/OmniAlpha/log"
	"github.com/xzemt/OmniAlpha/runtime"
	"github.com/xzemt/OmniAlpha/types"
)

// Writer is a runtime.Observer that writes every accepted event, then one
// job_result envelope per job, to an io.Writer.
//
// Write errors do not affect the job. The first one is kept and reported by
// Err; later envelopes are dropped.
type Writer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	format Format
	logger *log.Logger
	seq    int64
	err    error
	buf    []byte
}

// NewWriter creates a Writer. logger may be nil.
func NewWriter(w io.Writer, format Format, logger *log.Logger) (*Writer, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSONL
	}
	return &Writer{out: bufio.NewWriter(w), format: format, logger: logger}, nil
}

// OnEvent writes one event envelope.
func (w *Writer) OnEvent(job types.Job, ev types.Event) {
	w.write(&Envelope{
		Type:       string(ev.Kind()),
		JobID:      job.ID,
		Generation: job.Generation,
		Kind:       job.Kind,
		Status:     job.Status,
		Payload:    eventPayload(ev),
	})
}

// OnTerminal writes the job_result envelope and flushes.
func (w *Writer) OnTerminal(res runtime.Result) {
	st := res.State
	payload := map[string]any{
		"matches":         len(st.Results),
		"reported_errors": st.ReportedErrors,
		"decode_errors":   st.DecodeErrors,
		"duration_ms":     res.Job.Duration().Milliseconds(),
	}
	if st.FailureReason != "" {
		payload["failure_reason"] = st.FailureReason
	}
	w.write(&Envelope{
		Type:       JobResultType,
		JobID:      res.Job.ID,
		Generation: res.Job.Generation,
		Kind:       res.Job.Kind,
		Status:     res.Job.Status,
		Payload:    payload,
	})
	w.Flush()
}

// Flush writes buffered envelopes to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		if err := w.out.Flush(); err != nil {
			w.fail(err)
		}
	}
	return w.err
}

// Err returns the first write error.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) write(env *Envelope) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}

	w.seq++
	env.Seq = w.seq
	env.ContractVersion = types.ContractVersion

	var err error
	switch w.format {
	case FormatMsgpack:
		err = w.writeMsgpack(env)
	default:
		err = w.writeJSONL(env)
	}
	if err != nil {
		w.fail(err)
	}
}

func (w *Writer) writeJSONL(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := w.out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func (w *Writer) writeMsgpack(env *Envelope) error {
	out := *env
	out.Payload, _ = msgpackValue(env.Payload).(map[string]any)
	payload, err := msgpack.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	w.buf, err = appendFrame(w.buf[:0], payload)
	if err != nil {
		return err
	}
	_, err = w.out.Write(w.buf)
	return err
}

// fail must be called with mu held.
func (w *Writer) fail(err error) {
	w.err = err
	w.logger.Warn("event emission stopped", map[string]any{
		"seq":   w.seq,
		"error": err.Error(),
	})
}

var _ runtime.Observer = (*Writer)(nil)
