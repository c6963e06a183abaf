package cmd

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/config"
	"github.com/xzemt/OmniAlpha/cli/render"
	"github.com/xzemt/OmniAlpha/runtime"
	"github.com/xzemt/OmniAlpha/types"
)

// ScanCommand returns the scan command.
func ScanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Run a strategy scan and print the matches",
		ArgsUsage: " ",
		Flags: concatFlags(
			[]cli.Flag{
				&cli.StringFlag{
					Name:    "date",
					Aliases: []string{"d"},
					Usage:   "Trading date (YYYY-MM-DD, default today)",
				},
				&cli.StringSliceFlag{
					Name:    "strategy",
					Aliases: []string{"s"},
					Usage:   "Strategy key (repeatable)",
				},
				&cli.StringFlag{
					Name:  "pool",
					Usage: "Stock pool: hs300, zz1000, test, or custom",
					Value: string(types.PoolHS300),
				},
				&cli.StringFlag{
					Name:  "custom-pool",
					Usage: "Codes for --pool custom, separated by commas or spaces",
				},
			},
			ConnectionFlags(),
			JobFlags(),
			ReadOnlyFlags(),
		),
		Action: scanAction,
	}
}

func scanAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	e, err := newEnv(c)
	if err != nil {
		return err
	}

	req := buildScanRequest(c, e.cfg, time.Now())
	if err := req.Validate(); err != nil {
		return cli.Exit("invalid scan request: "+err.Error(), runtime.ExitCodeInvalidInput)
	}

	var view runtime.Observer
	if !c.Bool("quiet") {
		view = newScanProgress(stderr(c), render.IsTTY(stderr(c)))
	}

	out, err := runJob(c, e, jobSpec{
		kind: types.JobKindScan,
		start: func(ctx context.Context, s *runtime.Session) (*runtime.Handle, error) {
			return s.StartScan(ctx, req)
		},
		view: view,
	})
	if err != nil {
		return err
	}

	if !out.emitOnStdout {
		if err := r.RenderRecords(out.result.State.Results); err != nil {
			return err
		}
	}
	return finishJob(c, out)
}

// buildScanRequest assembles the request from flags, then config, then
// defaults. now supplies the default date.
func buildScanRequest(c *cli.Context, cfg *config.Config, now time.Time) *types.ScanRequest {
	date := c.String("date")
	if date == "" {
		date = now.Format(types.DateLayout)
	}
	req := &types.ScanRequest{
		Date:       date,
		Strategies: resolveStrings(c, "strategy", configVal(cfg, func(c *config.Config) []string { return c.Scan.Strategies })),
		PoolType:   types.PoolType(resolveString(c, "pool", string(configVal(cfg, func(c *config.Config) types.PoolType { return c.Scan.PoolType })))),
	}
	if req.PoolType == types.PoolCustom {
		req.CustomPool = types.ParseCustomPool(c.String("custom-pool"))
	}
	return req
}
