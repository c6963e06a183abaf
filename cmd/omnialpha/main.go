// Package main provides the omnialpha CLI entrypoint.
//
// Usage:
//
//	omnialpha <command> [options]
//
// Exit codes for scan and chat:
//   - 0: job succeeded
//   - 1: transport failure, truncated stream or unhealthy service
//   - 2: invalid arguments, request or config
//   - 130: cancelled by SIGINT/SIGTERM
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/cmd"
	"github.com/xzemt/OmniAlpha/cli/config"
	"github.com/xzemt/OmniAlpha/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "omnialpha",
		Usage:          "OmniAlpha strategy scan and assistant client",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.ScanCommand(),
			cmd.ChatCommand(),
			cmd.StrategiesCommand(),
			cmd.HealthCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code := reportError(os.Stderr, err)
	os.Exit(code)
}

// reportError prints err to w unless it carries no message, and returns
// the process exit code.
func reportError(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N).Error() is "" or "exit status N"
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
