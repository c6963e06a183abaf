package config

import (
	"fmt"
	"time"

	"github.com/xzemt/OmniAlpha/types"
)

// DefaultBaseURL is the API base used when neither flag nor file sets one.
const DefaultBaseURL = "http://localhost:8000/api"

// Config represents an omnialpha.yaml configuration file.
// All values are optional and act as defaults for omnialpha flags.
// CLI flags always override config values.
type Config struct {
	BaseURL       string        `yaml:"base_url"`
	HealthTimeout Duration      `yaml:"health_timeout"`
	ReadBuffer    int           `yaml:"read_buffer"`
	LogLevel      string        `yaml:"log_level"`
	Scan          ScanConfig    `yaml:"scan"`
	Chat          ChatConfig    `yaml:"chat"`
	Emit          EmitConfig    `yaml:"emit"`
	Adapter       AdapterConfig `yaml:"adapter"`
}

// ScanConfig holds scan request defaults.
type ScanConfig struct {
	PoolType   types.PoolType `yaml:"pool_type"`
	Strategies []string       `yaml:"strategies"`
}

// ChatConfig holds chat request defaults.
type ChatConfig struct {
	Context types.ChatContext `yaml:"context"`
}

// EmitConfig selects the event re-emission format ("jsonl" or "msgpack") and
// the destination path ("-" for stdout).
type EmitConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks enumerated fields. Empty values are allowed.
func (c *Config) Validate() error {
	if c.ReadBuffer < 0 {
		return fmt.Errorf("read_buffer must be positive, got %d", c.ReadBuffer)
	}
	if c.Scan.PoolType != "" && !c.Scan.PoolType.Valid() {
		return fmt.Errorf("scan.pool_type %q is not one of hs300, zz1000, test, custom", c.Scan.PoolType)
	}
	switch c.Emit.Format {
	case "", "jsonl", "msgpack":
	default:
		return fmt.Errorf("emit.format %q is not one of jsonl, msgpack", c.Emit.Format)
	}
	switch c.Adapter.Type {
	case "", "redis", "webhook":
	default:
		return fmt.Errorf("adapter.type %q is not one of redis, webhook", c.Adapter.Type)
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter.url is required when adapter.type is %q", c.Adapter.Type)
	}
	return nil
}
