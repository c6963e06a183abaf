package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/render"
	"github.com/xzemt/OmniAlpha/runtime"
)

// HealthResponse is the output of the health command.
type HealthResponse struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Status  string `json:"status" yaml:"status"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// HealthCommand returns the health command. It exits 1 when the service
// is unreachable or reports anything but "ok".
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Probe the service health endpoint",
		Flags:  concatFlags(ConnectionFlags(), ReadOnlyFlags()),
		Action: healthAction,
	}
}

func healthAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	status, err := e.client.Health(commandContext(c))
	resp := HealthResponse{BaseURL: e.client.BaseURL(), Status: status.Status}
	if err != nil {
		resp.Error = err.Error()
		if resp.Status == "" {
			resp.Status = "unreachable"
		}
	}
	if rerr := r.Render(resp); rerr != nil {
		return rerr
	}
	if err != nil {
		return cli.Exit("", runtime.ExitCodeFailed)
	}
	return nil
}
