package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/render"
	"github.com/xzemt/OmniAlpha/runtime"
)

// StrategiesCommand returns the strategies command.
// It lists the strategy keys accepted by scan.
func StrategiesCommand() *cli.Command {
	return &cli.Command{
		Name:   "strategies",
		Usage:  "List the strategies the service offers",
		Flags:  concatFlags(ConnectionFlags(), ReadOnlyFlags()),
		Action: strategiesAction,
	}
}

func strategiesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	strategies, err := e.client.Strategies(commandContext(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("list strategies: %v", err), runtime.ExitCodeFailed)
	}
	return r.Render(strategies)
}
