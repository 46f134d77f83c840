// Package config provides unified configuration for the codebridge CLI and
// service surfaces.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CODEBRIDGE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all configuration for codebridge.
type Config struct {
	Runtime       RuntimeConfig       `yaml:"runtime"`
	Execution     ExecutionConfig     `yaml:"execution"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// RuntimeConfig describes the isolation runtime to execute guest code in.
type RuntimeConfig struct {
	Command   string   `yaml:"command"`    // default: "mock-runtime"
	ExtraArgs []string `yaml:"extra_args"` // passed before the mode argument
	Mode      string   `yaml:"mode"`       // "stdio" or "streamable-http", default: "stdio"
	Port      int      `yaml:"port"`       // required for streamable-http
	Deps      []string `yaml:"deps"`       // staged before guest code runs
	RestURL   string   `yaml:"rest_url"`   // when set, use the REST /execute surface instead

	RestToken     string `yaml:"rest_token"`      // bearer token for the REST surface
	RestTokenFile string `yaml:"rest_token_file"` // _file variant for rest_token
}

// ExecutionConfig bounds a single code execution.
type ExecutionConfig struct {
	Timeout time.Duration `yaml:"timeout"`  // default: 30s
	RunTool string        `yaml:"run_tool"` // default: "run_code"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
	Port    int    `yaml:"port"`    // default: 9090
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Runtime: RuntimeConfig{
			Command: "mock-runtime",
			Mode:    "stdio",
		},
		Execution: ExecutionConfig{
			Timeout: 30 * time.Second,
			RunTool: "run_code",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
				Port:    9090,
			},
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Runtime.Mode {
	case "stdio", "streamable-http":
	default:
		return fmt.Errorf("runtime.mode must be \"stdio\" or \"streamable-http\", got %q", c.Runtime.Mode)
	}
	if c.Runtime.Mode == "streamable-http" && c.Runtime.Port == 0 && c.Runtime.RestURL == "" {
		return fmt.Errorf("runtime.port is required for streamable-http mode")
	}
	if c.Runtime.Mode == "stdio" && c.Runtime.Port != 0 {
		return fmt.Errorf("runtime.port is only valid for streamable-http mode")
	}
	if c.Execution.Timeout <= 0 {
		return fmt.Errorf("execution.timeout must be positive, got %s", c.Execution.Timeout)
	}
	if c.Execution.RunTool == "" {
		return fmt.Errorf("execution.run_tool must not be empty")
	}
	if c.Observability.Metrics.Enabled {
		if c.Observability.Metrics.Port <= 0 {
			return fmt.Errorf("observability.metrics.port must be positive")
		}
		if !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
			return fmt.Errorf("observability.metrics.path must start with /")
		}
	}
	return nil
}
