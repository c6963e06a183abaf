package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/xzemt/OmniAlpha/runtime"
	"github.com/xzemt/OmniAlpha/types"
)

// scanProgress prints scan activity to stderr. On a terminal the progress
// counter is redrawn in place; otherwise a line is printed per 10%.
type scanProgress struct {
	mu       sync.Mutex
	w        io.Writer
	tty      bool
	progress types.ProgressState
	decile   int
	inline   bool
}

func newScanProgress(w io.Writer, tty bool) *scanProgress {
	return &scanProgress{w: w, tty: tty, decile: -1}
}

func (p *scanProgress) OnEvent(_ types.Job, ev types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := ev.(type) {
	case types.Meta:
		if e.Total != nil {
			p.progress.Total = *e.Total
			p.progress.TotalKnown = true
		}
		p.line(e.Message)
	case types.Progress:
		p.progress.Current = e.Current
		p.drawProgress()
	case types.Match:
		if p.tty {
			p.line(fmt.Sprintf("match: %s %s", e.Record.Code(), e.Record.Name()))
		}
	case types.ReportedError:
		if e.Code != "" {
			p.line(fmt.Sprintf("error: %s: %s", e.Code, e.Message))
		} else {
			p.line("error: " + e.Message)
		}
	}
}

func (p *scanProgress) OnTerminal(runtime.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endInline()
}

func (p *scanProgress) drawProgress() {
	current := p.progress.Clamped()
	if p.tty {
		if p.progress.TotalKnown {
			fmt.Fprintf(p.w, "\r[%d/%d] %3.0f%%", current, p.progress.Total, p.progress.Percent())
		} else {
			fmt.Fprintf(p.w, "\r[%d]", current)
		}
		p.inline = true
		return
	}
	if !p.progress.TotalKnown || p.progress.Total <= 0 {
		return
	}
	d := int(p.progress.Percent()) / 10
	if d == p.decile {
		return
	}
	p.decile = d
	fmt.Fprintf(p.w, "progress: %d/%d (%d%%)\n", current, p.progress.Total, d*10)
}

func (p *scanProgress) line(msg string) {
	if msg == "" {
		return
	}
	p.endInline()
	fmt.Fprintln(p.w, msg)
	if p.tty && p.progress.Current > 0 {
		p.drawProgress()
	}
}

func (p *scanProgress) endInline() {
	if p.inline {
		fmt.Fprintln(p.w)
		p.inline = false
	}
}

// chatPrinter streams assistant text to w as fragments arrive.
type chatPrinter struct {
	w       io.Writer
	printed bool
}

func (p *chatPrinter) OnEvent(_ types.Job, ev types.Event) {
	if f, ok := ev.(types.Fragment); ok {
		_, _ = io.WriteString(p.w, f.Text)
		p.printed = true
	}
}

func (p *chatPrinter) OnTerminal(runtime.Result) {
	if p.printed {
		_, _ = io.WriteString(p.w, "\n")
	}
}

var (
	_ runtime.Observer = (*scanProgress)(nil)
	_ runtime.Observer = (*chatPrinter)(nil)
)
