package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/config"
	"github.com/xzemt/OmniAlpha/cli/render"
	"github.com/xzemt/OmniAlpha/runtime"
	"github.com/xzemt/OmniAlpha/types"
)

// maxStdinMessage bounds a chat message read from stdin.
const maxStdinMessage = 1 << 20

// ChatResponse is the structured chat output for --format json|yaml.
type ChatResponse struct {
	JobID    string          `json:"job_id" yaml:"job_id"`
	Status   types.JobStatus `json:"status" yaml:"status"`
	Context  string          `json:"context,omitempty" yaml:"context,omitempty"`
	Message  string          `json:"message" yaml:"message"`
	Response string          `json:"response" yaml:"response"`
}

// ChatCommand returns the chat command.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Ask the assistant and stream its answer",
		ArgsUsage: "<message> (use - to read stdin)",
		Flags: concatFlags(
			[]cli.Flag{
				&cli.StringFlag{
					Name:  "context",
					Usage: "Conversation topic: general, strategy, or code",
				},
			},
			ConnectionFlags(),
			JobFlags(),
			ReadOnlyFlags(),
		),
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	// Text streams live unless a structured format was asked for.
	var r *render.Renderer
	if c.IsSet("format") {
		var err error
		if r, err = render.NewRenderer(c); err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
		}
	}

	e, err := newEnv(c)
	if err != nil {
		return err
	}

	message, err := chatMessage(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	req := &types.ChatRequest{
		Message: message,
		Context: types.ChatContext(resolveString(c, "context",
			string(configVal(e.cfg, func(c *config.Config) types.ChatContext { return c.Chat.Context })))),
	}
	if err := req.Validate(); err != nil {
		return cli.Exit("invalid chat request: "+err.Error(), runtime.ExitCodeInvalidInput)
	}

	var view runtime.Observer
	if r == nil && !isEmitToStdout(c, e) {
		view = &chatPrinter{w: stdout(c)}
	}

	out, err := runJob(c, e, jobSpec{
		kind: types.JobKindChat,
		start: func(ctx context.Context, s *runtime.Session) (*runtime.Handle, error) {
			return s.StartChat(ctx, req)
		},
		view: view,
	})
	if err != nil {
		return err
	}

	if r != nil && !out.emitOnStdout {
		resp := ChatResponse{
			JobID:    out.result.Job.ID,
			Status:   out.result.Job.Status,
			Context:  string(req.Context),
			Message:  req.Message,
			Response: assistantReply(out.result),
		}
		if err := r.Render(resp); err != nil {
			return err
		}
	}
	return finishJob(c, out)
}

// chatMessage joins the arguments, or reads stdin when the only argument
// is "-" or none is given on a non-terminal stdin.
func chatMessage(c *cli.Context) (string, error) {
	args := c.Args().Slice()
	if (len(args) == 1 && args[0] == "-") || (len(args) == 0 && !render.IsTTY(os.Stdin)) {
		reader := io.Reader(os.Stdin)
		if c.App != nil && c.App.Reader != nil {
			reader = c.App.Reader
		}
		data, err := io.ReadAll(io.LimitReader(reader, maxStdinMessage))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, " "), nil
}

// assistantReply returns the assistant turn of the result's job.
func assistantReply(res runtime.Result) string {
	transcript := res.State.Transcript
	for i := len(transcript) - 1; i >= 0; i-- {
		m := transcript[i]
		if m.Role == types.RoleAssistant && m.Generation == res.Job.Generation {
			return m.Content
		}
	}
	return ""
}

func isEmitToStdout(c *cli.Context, e *env) bool {
	format := resolveString(c, "emit", configVal(e.cfg, func(c *config.Config) string { return c.Emit.Format }))
	path := resolveString(c, "emit-path", configVal(e.cfg, func(c *config.Config) string { return c.Emit.Path }))
	return format != "" && (path == "" || path == "-")
}
