package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/xzemt/OmniAlpha/adapter"
	"github.com/xzemt/OmniAlpha/log"
	"github.com/xzemt/OmniAlpha/types"
)

// Observers combines observers. They are called in order; nil entries are
// skipped.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) OnEvent(job types.Job, ev types.Event) {
	for _, o := range m {
		o.OnEvent(job, ev)
	}
}

func (m multiObserver) OnTerminal(res Result) {
	for _, o := range m {
		o.OnTerminal(res)
	}
}

// DefaultPublishTimeout bounds one adapter notification.
const DefaultPublishTimeout = 30 * time.Second

// Notifier publishes a JobCompletedEvent through an adapter when a job ends.
// Publish failures are logged and never change the job outcome.
//
// Publishing runs on its own goroutine so a slow adapter never holds up
// Cancel or the next Start. Call Wait before closing the adapter.
type Notifier struct {
	Adapter adapter.Adapter
	Logger  *log.Logger
	// Timeout bounds each publish (default 30s).
	Timeout time.Duration

	wg sync.WaitGroup
}

// OnEvent is a no-op.
func (n *Notifier) OnEvent(types.Job, types.Event) {}

// OnTerminal starts publishing the job's completion event and returns.
func (n *Notifier) OnTerminal(res Result) {
	event := adapter.NewJobCompletedEvent(res.State)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.publish(res.Job, event)
	}()
}

// Wait blocks until every started publish has returned or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) publish(job types.Job, event *adapter.JobCompletedEvent) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger := n.Logger.ForJob(job)
	if err := n.Adapter.Publish(ctx, event); err != nil {
		logger.Warn("adapter publish failed", map[string]any{"error": err.Error()})
		return
	}
	logger.Debug("adapter publish succeeded", map[string]any{"event_type": event.EventType})
}

var (
	_ Observer = multiObserver(nil)
	_ Observer = (*Notifier)(nil)
)
