package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Runtime.Command != "mock-runtime" {
		t.Errorf("default runtime.command = %q, want \"mock-runtime\"", cfg.Runtime.Command)
	}
	if cfg.Runtime.Mode != "stdio" {
		t.Errorf("default runtime.mode = %q, want \"stdio\"", cfg.Runtime.Mode)
	}
	if cfg.Execution.Timeout != 30*time.Second {
		t.Errorf("default execution.timeout = %v, want 30s", cfg.Execution.Timeout)
	}
	if cfg.Execution.RunTool != "run_code" {
		t.Errorf("default execution.run_tool = %q, want \"run_code\"", cfg.Execution.RunTool)
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Error("default observability.metrics.enabled = false, want true")
	}
	if cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("default observability.metrics.path = %q, want \"/metrics\"", cfg.Observability.Metrics.Path)
	}
	if cfg.Observability.Metrics.Port != 9090 {
		t.Errorf("default observability.metrics.port = %d, want 9090", cfg.Observability.Metrics.Port)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
runtime:
  command: deno
  extra_args: ["run", "main.ts"]
  mode: streamable-http
  port: 9000
  deps: ["left-pad", "uuid"]
execution:
  timeout: 45s
  run_tool: execute
observability:
  metrics:
    enabled: false
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Runtime.Command != "deno" {
		t.Errorf("runtime.command = %q, want \"deno\"", cfg.Runtime.Command)
	}
	if len(cfg.Runtime.ExtraArgs) != 2 || cfg.Runtime.ExtraArgs[0] != "run" {
		t.Errorf("runtime.extra_args = %v", cfg.Runtime.ExtraArgs)
	}
	if cfg.Runtime.Mode != "streamable-http" {
		t.Errorf("runtime.mode = %q, want \"streamable-http\"", cfg.Runtime.Mode)
	}
	if cfg.Runtime.Port != 9000 {
		t.Errorf("runtime.port = %d, want 9000", cfg.Runtime.Port)
	}
	if len(cfg.Runtime.Deps) != 2 || cfg.Runtime.Deps[1] != "uuid" {
		t.Errorf("runtime.deps = %v", cfg.Runtime.Deps)
	}
	if cfg.Execution.Timeout != 45*time.Second {
		t.Errorf("execution.timeout = %v, want 45s", cfg.Execution.Timeout)
	}
	if cfg.Execution.RunTool != "execute" {
		t.Errorf("execution.run_tool = %q, want \"execute\"", cfg.Execution.RunTool)
	}
	if cfg.Observability.Metrics.Enabled {
		t.Error("observability.metrics.enabled = true, want false")
	}
}

func TestEnvOverride(t *testing.T) {
	yamlContent := `
runtime:
  command: from-yaml
  mode: stdio
execution:
  timeout: 45s
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	t.Setenv("CODEBRIDGE_RUNTIME_COMMAND", "from-env")
	t.Setenv("CODEBRIDGE_RUNTIME_MODE", "streamable-http")
	t.Setenv("CODEBRIDGE_RUNTIME_PORT", "7070")
	t.Setenv("CODEBRIDGE_RUNTIME_DEPS", "left-pad, uuid")
	t.Setenv("CODEBRIDGE_TIMEOUT", "90s")
	t.Setenv("CODEBRIDGE_METRICS_ENABLED", "false")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Runtime.Command != "from-env" {
		t.Errorf("runtime.command = %q, want env override", cfg.Runtime.Command)
	}
	if cfg.Runtime.Mode != "streamable-http" {
		t.Errorf("runtime.mode = %q, want env override", cfg.Runtime.Mode)
	}
	if cfg.Runtime.Port != 7070 {
		t.Errorf("runtime.port = %d, want env override 7070", cfg.Runtime.Port)
	}
	if len(cfg.Runtime.Deps) != 2 || cfg.Runtime.Deps[0] != "left-pad" || cfg.Runtime.Deps[1] != "uuid" {
		t.Errorf("runtime.deps = %v, want trimmed env list", cfg.Runtime.Deps)
	}
	if cfg.Execution.Timeout != 90*time.Second {
		t.Errorf("execution.timeout = %v, want env override 90s", cfg.Execution.Timeout)
	}
	if cfg.Observability.Metrics.Enabled {
		t.Error("observability.metrics.enabled = true, want env override false")
	}
}

func TestFileDiscovery(t *testing.T) {
	// Explicit path.
	tmpFile := writeTemp(t, "config-*.yaml", "runtime:\n  command: explicit\n")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load(explicit) error: %v", err)
	}
	if cfg.Runtime.Command != "explicit" {
		t.Errorf("explicit path: runtime.command = %q", cfg.Runtime.Command)
	}

	// CODEBRIDGE_CONFIG env var.
	envFile := writeTemp(t, "envconfig-*.yaml", "runtime:\n  command: env-config\n")
	t.Setenv("CODEBRIDGE_CONFIG", envFile)

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(CODEBRIDGE_CONFIG) error: %v", err)
	}
	if cfg.Runtime.Command != "env-config" {
		t.Errorf("CODEBRIDGE_CONFIG: runtime.command = %q", cfg.Runtime.Command)
	}

	// No file, defaults + env overrides.
	t.Setenv("CODEBRIDGE_CONFIG", "")
	t.Setenv("CODEBRIDGE_RUNTIME_COMMAND", "defaults-only")

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(no file) error: %v", err)
	}
	if cfg.Runtime.Command != "defaults-only" {
		t.Errorf("no file: runtime.command = %q, want env override", cfg.Runtime.Command)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name: "invalid mode",
			modify: func(c *Config) {
				c.Runtime.Mode = "websocket"
			},
			wantErr: "runtime.mode must be",
		},
		{
			name: "streamable-http without port",
			modify: func(c *Config) {
				c.Runtime.Mode = "streamable-http"
			},
			wantErr: "runtime.port is required",
		},
		{
			name: "port with stdio mode",
			modify: func(c *Config) {
				c.Runtime.Port = 9000
			},
			wantErr: "only valid for streamable-http",
		},
		{
			name: "non-positive timeout",
			modify: func(c *Config) {
				c.Execution.Timeout = 0
			},
			wantErr: "execution.timeout must be positive",
		},
		{
			name: "empty run tool",
			modify: func(c *Config) {
				c.Execution.RunTool = ""
			},
			wantErr: "execution.run_tool",
		},
		{
			name: "metrics path without slash",
			modify: func(c *Config) {
				c.Observability.Metrics.Path = "metrics"
			},
			wantErr: "must start with /",
		},
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: "",
		},
		{
			name: "valid streamable-http with rest url",
			modify: func(c *Config) {
				c.Runtime.Mode = "streamable-http"
				c.Runtime.RestURL = "http://localhost:8000"
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFileReference(t *testing.T) {
	secretFile := writeTemp(t, "token-*.txt", "  tok-from-file-123  \n")

	yamlContent := `
runtime:
  rest_url: http://localhost:8000
  rest_token_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Runtime.RestToken != "tok-from-file-123" {
		t.Errorf("runtime.rest_token = %q, want \"tok-from-file-123\" (from file, trimmed)", cfg.Runtime.RestToken)
	}
}

func TestFileReferenceDoesNotOverrideExplicitValue(t *testing.T) {
	secretFile := writeTemp(t, "token-*.txt", "tok-from-file")

	yamlContent := `
runtime:
  rest_url: http://localhost:8000
  rest_token: tok-explicit
  rest_token_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// When both rest_token and rest_token_file are set, the explicit value
	// takes precedence.
	if cfg.Runtime.RestToken != "tok-explicit" {
		t.Errorf("runtime.rest_token = %q, want \"tok-explicit\"", cfg.Runtime.RestToken)
	}
}

func TestFileReferenceMissingFile(t *testing.T) {
	yamlContent := `
runtime:
  rest_url: http://localhost:8000
  rest_token_file: /nonexistent/token.txt
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	if _, err := Load(tmpFile); err == nil || !strings.Contains(err.Error(), "rest_token_file") {
		t.Fatalf("Load() error = %v, want rest_token_file failure", err)
	}
}

func TestYAMLDefaultsMerge(t *testing.T) {
	// A minimal YAML that only sets the runtime command.
	// All other fields should retain defaults.
	tmpFile := writeTemp(t, "config-*.yaml", "runtime:\n  command: custom-runtime\n")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Runtime.Command != "custom-runtime" {
		t.Errorf("runtime.command = %q", cfg.Runtime.Command)
	}
	if cfg.Runtime.Mode != "stdio" {
		t.Errorf("runtime.mode = %q, want default \"stdio\"", cfg.Runtime.Mode)
	}
	if cfg.Execution.Timeout != 30*time.Second {
		t.Errorf("execution.timeout = %v, want default 30s", cfg.Execution.Timeout)
	}
	if cfg.Observability.Metrics.Port != 9090 {
		t.Errorf("observability.metrics.port = %d, want default 9090", cfg.Observability.Metrics.Port)
	}
}

// writeTemp creates a temporary file with the given content and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	dir := t.TempDir()

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	path := f.Name()

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		t.Fatalf("writing temp file: %v", err)
	}
	f.Close()

	return filepath.Clean(path)
}
