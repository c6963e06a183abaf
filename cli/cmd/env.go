package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/config"
	"github.com/xzemt/OmniAlpha/client"
	"github.com/xzemt/OmniAlpha/log"
	"github.com/xzemt/OmniAlpha/runtime"
	"github.com/xzemt/OmniAlpha/types"
)

// env holds what every service-facing command needs.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	client *client.Client
}

// loadConfig loads --config if given. A nil config means no file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	return config.Load(path)
}

// newEnv resolves config, logger and client. Errors are returned as
// cli.Exit with the invalid-input exit code.
func newEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	level, err := log.ParseLevel(resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.LogLevel })))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid --log-level: %v", err), runtime.ExitCodeInvalidInput)
	}
	var logger *log.Logger
	if c.App != nil && c.App.ErrWriter != nil {
		logger = log.NewLoggerWithWriter(c.App.ErrWriter, level)
	} else {
		logger = log.NewLogger(level)
	}

	cl, err := client.New(client.Config{
		BaseURL: resolveString(c, "base-url", configVal(cfg, func(c *config.Config) string { return c.BaseURL })),
		HealthTimeout: resolveDuration(c, "health-timeout",
			configVal(cfg, func(c *config.Config) config.Duration { return c.HealthTimeout }).Duration),
		UserAgent: "omnialpha/" + types.Version,
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	return &env{cfg: cfg, logger: logger, client: cl}, nil
}

// checkHealth probes the service unless --skip-health is set.
func (e *env) checkHealth(c *cli.Context) error {
	if c.Bool("skip-health") {
		return nil
	}
	if _, err := e.client.Health(c.Context); err != nil {
		return cli.Exit(fmt.Sprintf("service at %s is not healthy: %v", e.client.BaseURL(), err), runtime.ExitCodeFailed)
	}
	return nil
}

// commandContext returns the context of c, falling back to Background.
func commandContext(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
