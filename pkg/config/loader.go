package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CODEBRIDGE_CONFIG env, ./codebridge.yaml, /etc/codebridge/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CODEBRIDGE_CONFIG environment variable
// 3. ./codebridge.yaml in the current directory
// 4. /etc/codebridge/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("CODEBRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"codebridge.yaml",
		"/etc/codebridge/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps CODEBRIDGE_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEBRIDGE_RUNTIME_COMMAND"); v != "" {
		cfg.Runtime.Command = v
	}
	if v := os.Getenv("CODEBRIDGE_RUNTIME_MODE"); v != "" {
		cfg.Runtime.Mode = v
	}
	if v := os.Getenv("CODEBRIDGE_RUNTIME_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Runtime.Port = port
		}
	}
	if v := os.Getenv("CODEBRIDGE_RUNTIME_DEPS"); v != "" {
		cfg.Runtime.Deps = splitList(v)
	}
	if v := os.Getenv("CODEBRIDGE_RUNTIME_REST_URL"); v != "" {
		cfg.Runtime.RestURL = v
	}
	if v := os.Getenv("CODEBRIDGE_RUNTIME_REST_TOKEN"); v != "" {
		cfg.Runtime.RestToken = v
	}
	if v := os.Getenv("CODEBRIDGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Execution.Timeout = d
		}
	}
	if v := os.Getenv("CODEBRIDGE_RUN_TOOL"); v != "" {
		cfg.Execution.RunTool = v
	}
	if v := os.Getenv("CODEBRIDGE_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Observability.Metrics.Port = port
		}
	}
	if v := os.Getenv("CODEBRIDGE_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = enabled
		}
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. An explicitly set value always wins over its _file variant.
func resolveFileReferences(cfg *Config) error {
	// runtime.rest_token_file -> runtime.rest_token
	if cfg.Runtime.RestTokenFile != "" && cfg.Runtime.RestToken == "" {
		val, err := readSecretFile(cfg.Runtime.RestTokenFile)
		if err != nil {
			return fmt.Errorf("runtime.rest_token_file: %w", err)
		}
		cfg.Runtime.RestToken = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
