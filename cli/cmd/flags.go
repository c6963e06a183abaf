// Package cmd provides CLI commands for the omnialpha binary.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/adapter"
	"github.com/xzemt/OmniAlpha/client"
	"github.com/xzemt/OmniAlpha/cli/config"
)

// FormatFlag selects output format: json, table, yaml.
var FormatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Usage:   "Output format: json, table, yaml",
}

// ReadOnlyFlags returns the shared flags for commands that only print.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{FormatFlag}
}

// ConnectionFlags returns the flags every command that talks to the
// service accepts.
func ConnectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to omnialpha.yaml",
			EnvVars: []string{"OMNIALPHA_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Service API base URL",
			Value:   config.DefaultBaseURL,
			EnvVars: []string{"OMNIALPHA_BASE_URL"},
		},
		&cli.DurationFlag{
			Name:  "health-timeout",
			Usage: "Timeout for the health probe",
			Value: client.DefaultHealthTimeout,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Diagnostic log level: debug, info, warn, error",
			Value: "warn",
		},
	}
}

// JobFlags returns the flags shared by scan and chat.
func JobFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-health",
			Usage: "Do not probe /health before starting the job",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress progress output",
		},
		&cli.StringFlag{
			Name:  "emit",
			Usage: "Re-emit accepted events: jsonl or msgpack",
		},
		&cli.StringFlag{
			Name:  "emit-path",
			Usage: "Emit destination file (default stdout when --emit is set)",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON job report to this path (- for stderr)",
		},
		&cli.IntFlag{
			Name:  "read-buffer",
			Usage: "Response body read size in bytes",
		},
		// Adapter flags
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion adapter: redis or webhook",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint (redis:// URL or webhook URL)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis channel ({kind} is replaced by the job kind)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-publish timeout",
			Value: 10 * time.Second,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retry attempts",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "adapter-backoff",
			Usage: "Delay before the first publish retry",
			Value: adapter.DefaultBackoff,
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as Key=Value (repeatable)",
		},
	}
}

func concatFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
