package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xzemt/OmniAlpha/types"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `base_url: https://omnialpha.example/api
health_timeout: 3s
read_buffer: 8192
log_level: debug

scan:
  pool_type: hs300
  strategies: [ma_cross, rsi_oversold]

chat:
  context: strategy

emit:
  format: msgpack
  path: events.bin

adapter:
  type: webhook
  url: https://hooks.example.com/omnialpha
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "base_url", cfg.BaseURL, "https://omnialpha.example/api")
	assertEqual(t, "log_level", cfg.LogLevel, "debug")
	if cfg.HealthTimeout.Duration != 3*time.Second {
		t.Errorf("health_timeout = %v, want 3s", cfg.HealthTimeout.Duration)
	}
	if cfg.ReadBuffer != 8192 {
		t.Errorf("read_buffer = %d, want 8192", cfg.ReadBuffer)
	}

	// Scan
	if cfg.Scan.PoolType != types.PoolHS300 {
		t.Errorf("scan.pool_type = %q, want hs300", cfg.Scan.PoolType)
	}
	if len(cfg.Scan.Strategies) != 2 || cfg.Scan.Strategies[1] != "rsi_oversold" {
		t.Errorf("scan.strategies = %v", cfg.Scan.Strategies)
	}

	// Chat
	if cfg.Chat.Context != types.ChatContextStrategy {
		t.Errorf("chat.context = %q, want strategy", cfg.Chat.Context)
	}

	// Emit
	assertEqual(t, "emit.format", cfg.Emit.Format, "msgpack")
	assertEqual(t, "emit.path", cfg.Emit.Path, "events.bin")

	// Adapter
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/omnialpha")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("expected adapter.timeout=10s, got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("expected adapter.retries=3")
	}
	if cfg.Adapter.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	for _, content := range []string{"", "   \n  \n  \n"} {
		path := writeTemp(t, content)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", content, err)
		}
		if cfg.BaseURL != "" {
			t.Errorf("expected empty base_url, got %q", cfg.BaseURL)
		}
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/omnialpha.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("OMNIALPHA_TEST_BASE", "http://10.0.0.5:8000/api")

	path := writeTemp(t, `base_url: ${OMNIALPHA_TEST_BASE}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "base_url", cfg.BaseURL, "http://10.0.0.5:8000/api")
}

func TestLoad_RequiredEnvMissing(t *testing.T) {
	path := writeTemp(t, `base_url: ${OMNIALPHA_UNSET_12345:?set the API base}`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing required variable")
	}
	if !strings.Contains(err.Error(), "OMNIALPHA_UNSET_12345") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `base_url: http://localhost:8000/api
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `scan:
  pool_type: test
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTemp(t, "health_timeout: soon\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"zero value", Config{}, ""},
		{"bad pool", Config{Scan: ScanConfig{PoolType: "sp500"}}, "scan.pool_type"},
		{"bad emit", Config{Emit: EmitConfig{Format: "xml"}}, "emit.format"},
		{"bad adapter", Config{Adapter: AdapterConfig{Type: "kafka", URL: "x"}}, "adapter.type"},
		{"adapter without url", Config{Adapter: AdapterConfig{Type: "redis"}}, "adapter.url"},
		{"negative buffer", Config{ReadBuffer: -1}, "read_buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "OMNIALPHA_DOTENV_A=from-file\nOMNIALPHA_DOTENV_B=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("OMNIALPHA_DOTENV_B", "from-env")
	t.Setenv("OMNIALPHA_DOTENV_A", "")
	os.Unsetenv("OMNIALPHA_DOTENV_A")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}

	assertEqual(t, "A", os.Getenv("OMNIALPHA_DOTENV_A"), "from-file")
	assertEqual(t, "B", os.Getenv("OMNIALPHA_DOTENV_B"), "from-env")
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "omnialpha.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
