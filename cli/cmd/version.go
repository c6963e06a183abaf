package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/render"
	"github.com/xzemt/OmniAlpha/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version         string `json:"version" yaml:"version"`
	ContractVersion string `json:"contract_version" yaml:"contract_version"`
	Commit          string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command. It never contacts the service.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.Render(VersionResponse{
			Version:         types.Version,
			ContractVersion: types.ContractVersion,
			Commit:          commit,
		})
	}
}
