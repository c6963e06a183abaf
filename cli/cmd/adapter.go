package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xzemt/OmniAlpha/adapter"
	"github.com/xzemt/OmniAlpha/adapter/redis"
	"github.com/xzemt/OmniAlpha/adapter/webhook"
	"github.com/xzemt/OmniAlpha/cli/config"
)

// adapterChoice holds the resolved adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
	backoff     time.Duration
}

// parseAdapterConfig resolves the adapter from flags and config.
// Returns nil when no adapter is selected.
func parseAdapterConfig(c *cli.Context, cfg *config.Config) (*adapterChoice, error) {
	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type }))
	if adapterType == "" {
		return nil, nil
	}
	return parseAdapterConfigWithPrecedence(c, cfg, adapterType)
}

// parseAdapterConfigWithPrecedence applies CLI > config > default for every
// adapter field. Config headers are merged under CLI headers.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (*adapterChoice, error) {
	var ac config.AdapterConfig
	if cfg != nil {
		ac = cfg.Adapter
	}

	choice := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", ac.URL),
		channel:     resolveString(c, "adapter-channel", ac.Channel),
		timeout:     resolveDuration(c, "adapter-timeout", ac.Timeout.Duration),
		retries:     c.Int("adapter-retries"),
		backoff:     c.Duration("adapter-backoff"),
	}
	if !c.IsSet("adapter-retries") && ac.Retries != nil {
		choice.retries = *ac.Retries
	}

	switch adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("unknown adapter %q (must be webhook or redis)", adapterType)
	}
	if choice.url == "" {
		return nil, fmt.Errorf("--adapter-url is required when --adapter is %s", adapterType)
	}
	if choice.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", choice.retries)
	}

	headers := make(map[string]string, len(ac.Headers))
	for k, v := range ac.Headers {
		headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("malformed --adapter-header %q (want Key=Value)", h)
		}
		headers[strings.TrimSpace(k)] = v
	}
	if len(headers) > 0 {
		choice.headers = headers
	}
	return choice, nil
}

// buildAdapter creates the adapter described by choice.
func buildAdapter(choice *adapterChoice) (adapter.Adapter, error) {
	switch choice.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     choice.url,
			Headers: choice.headers,
			Timeout: choice.timeout,
			Retries: choice.retries,
			Backoff: choice.backoff,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     choice.url,
			Channel: choice.channel,
			Timeout: choice.timeout,
			Retries: choice.retries,
			Backoff: choice.backoff,
		})
	default:
		return nil, fmt.Errorf("unknown adapter %q", choice.adapterType)
	}
}
