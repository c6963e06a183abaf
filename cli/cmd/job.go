package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/config"
	"github.com/xzemt/OmniAlpha/emit"
	"github.com/xzemt/OmniAlpha/metrics"
	"github.com/xzemt/OmniAlpha/runtime"
	"github.com/xzemt/OmniAlpha/types"
)

// jobSpec describes one scan or chat invocation.
type jobSpec struct {
	kind  types.JobKind
	start func(ctx context.Context, s *runtime.Session) (*runtime.Handle, error)
	// view renders live output. May be nil.
	view runtime.Observer
}

// jobOutcome is what runJob hands back to the command.
type jobOutcome struct {
	result   runtime.Result
	exitCode int
	// emitOnStdout is set when the event stream itself is the stdout output.
	emitOnStdout bool
}

// runJob starts one job on a fresh session and waits for it. SIGINT and
// SIGTERM cancel the job; its partial state is still returned.
func runJob(c *cli.Context, e *env, job jobSpec) (*jobOutcome, error) {
	if err := e.checkHealth(c); err != nil {
		return nil, err
	}

	out := &jobOutcome{}
	var observers []runtime.Observer
	observers = append(observers, job.view)

	emitter, closeEmit, onStdout, err := openEmitter(c, e)
	if err != nil {
		return nil, err
	}
	defer closeEmit()
	if emitter != nil {
		observers = append(observers, emitter)
		out.emitOnStdout = onStdout
	}

	var notifier *runtime.Notifier
	choice, err := parseAdapterConfig(c, e.cfg)
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	if choice != nil {
		a, err := buildAdapter(choice)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("adapter: %v", err), runtime.ExitCodeInvalidInput)
		}
		defer func() { _ = a.Close() }()
		notifier = &runtime.Notifier{Adapter: a, Logger: e.logger, Timeout: choice.timeout}
		observers = append(observers, notifier)
	}

	collector := metrics.NewCollector(string(job.kind), e.client.BaseURL())
	sess, err := runtime.NewSession(runtime.SessionConfig{
		Transport:  e.client,
		Logger:     e.logger,
		Collector:  collector,
		Observer:   runtime.Observers(observers...),
		ReadBuffer: resolveInt(c, "read-buffer", configVal(e.cfg, func(c *config.Config) int { return c.ReadBuffer })),
	})
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			sess.Cancel()
		case <-done:
		}
	}()

	h, err := job.start(commandContext(c), sess)
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeForError(err))
	}
	res, err := h.Wait(context.Background())
	if err != nil {
		return nil, err
	}
	if notifier != nil {
		// Each publish is bounded by the adapter timeout.
		_ = notifier.Wait(context.Background())
	}

	if emitter != nil {
		if err := emitter.Flush(); err != nil {
			e.logger.Warn("emit failed", map[string]any{"error": err.Error()})
		}
	}

	out.result = res
	out.exitCode = runtime.ExitCodeFor(res.Status())

	if path := c.String("report"); path != "" {
		report := runtime.BuildJobReport(res, collector.Snapshot(), out.exitCode)
		if err := runtime.WriteJobReport(report, path); err != nil {
			e.logger.Warn("report failed", map[string]any{"error": err.Error()})
		}
	}
	return out, nil
}

// openEmitter creates the event re-emitter selected by --emit or config.
func openEmitter(c *cli.Context, e *env) (*emit.Writer, func(), bool, error) {
	noop := func() {}
	format := resolveString(c, "emit", configVal(e.cfg, func(c *config.Config) string { return c.Emit.Format }))
	if format == "" {
		return nil, noop, false, nil
	}
	f, err := emit.ParseFormat(format)
	if err != nil {
		return nil, noop, false, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	path := resolveString(c, "emit-path", configVal(e.cfg, func(c *config.Config) string { return c.Emit.Path }))
	var w io.Writer = stdout(c)
	closeFn := noop
	onStdout := true
	if path != "" && path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return nil, noop, false, cli.Exit(fmt.Sprintf("cannot create emit file: %v", err), runtime.ExitCodeInvalidInput)
		}
		w = file
		closeFn = func() { _ = file.Close() }
		onStdout = false
	}

	ew, err := emit.NewWriter(w, f, e.logger)
	if err != nil {
		closeFn()
		return nil, noop, false, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	return ew, closeFn, onStdout, nil
}

// finishJob prints the outcome line and converts the exit code.
func finishJob(c *cli.Context, out *jobOutcome) error {
	msg := runtime.DescribeOutcome(out.result)
	if out.exitCode == runtime.ExitCodeSucceeded {
		if !c.Bool("quiet") {
			fmt.Fprintln(stderr(c), msg)
		}
		return nil
	}
	return cli.Exit(msg, out.exitCode)
}

func stdout(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func stderr(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
