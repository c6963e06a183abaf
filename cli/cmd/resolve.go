package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/cli/config"
)

// Precedence for every setting: CLI flag, then config file, then flag default.

// configVal reads a value from cfg, returning the zero value for a nil cfg.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int(name)
	}
	return cfgVal
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal <= 0 {
		return c.Duration(name)
	}
	return cfgVal
}

func resolveStrings(c *cli.Context, name string, cfgVal []string) []string {
	if c.IsSet(name) || len(cfgVal) == 0 {
		return c.StringSlice(name)
	}
	return cfgVal
}
