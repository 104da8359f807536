// Package config decodes speckit-flow.yaml, applying defaults at
// decode time rather than through a dynamic schema validator.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"speckit-flow/internal/errorsx"
)

const (
	// DefaultAgentType is used when agent_type is absent or blank.
	DefaultAgentType = "copilot"
	// DefaultNumSessions is used when num_sessions is absent.
	DefaultNumSessions = 3
	// MinSessions and MaxSessions bound num_sessions (spec.md §3).
	MinSessions = 1
	MaxSessions = 10
)

// Config is the decoded contents of speckit-flow.yaml. Unknown keys
// are silently ignored by yaml.v3's struct decode; these fields are
// the authoritative recognized set.
type Config struct {
	AgentType   string `yaml:"agent_type"`
	NumSessions int    `yaml:"num_sessions"`
}

// Load reads and decodes the configuration file at path, applying
// defaults for absent fields and validating bounds.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errorsx.ConfigError{
				Path:   path,
				Reason: "file not found; run `speckit-flow init` to create one",
			}
		}
		return nil, &errorsx.ConfigError{Path: path, Reason: err.Error()}
	}

	cfg := &Config{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &errorsx.ConfigError{Path: path, Reason: "invalid YAML: " + err.Error()}
		}
	}

	applyDefaults(cfg)

	if err := validate(cfg, path); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.AgentType = trimOrDefault(cfg.AgentType, DefaultAgentType)
	if cfg.NumSessions == 0 {
		cfg.NumSessions = DefaultNumSessions
	}
}

func trimOrDefault(s, def string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return def
	}
	return trimmed
}

func validate(cfg *Config, path string) error {
	if cfg.NumSessions < MinSessions || cfg.NumSessions > MaxSessions {
		return &errorsx.ConfigError{
			Path:   path,
			Reason: "num_sessions must be between 1 and 10",
		}
	}
	return nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
