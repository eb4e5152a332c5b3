package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and suite paths.
// Order of precedence (highest to lowest): suite config, global config,
// defaults. Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, suitePath string) (*SuiteConfig, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if suitePath != "" {
		if err := mergeConfigFile(cfg, suitePath); err != nil {
			return nil, fmt.Errorf("loading suite config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.cyclegate/config.json
// Suite: .cyclegate/config.json (relative to cwd)
func LoadDefault() (*SuiteConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".cyclegate", "config.json")
	suitePath := filepath.Join(".cyclegate", "config.json")

	return Load(globalPath, suitePath)
}

// mergeConfigFile reads a JSON config file and merges it into the base
// config. Missing files are silently skipped.
func mergeConfigFile(base *SuiteConfig, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded SuiteConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.Suite != "" {
		base.Suite = loaded.Suite
	}
	if loaded.SuiteShareDir != "" {
		base.SuiteShareDir = loaded.SuiteShareDir
	}
	if loaded.PollInterval != "" {
		base.PollInterval = loaded.PollInterval
	}
	if loaded.MaxConcurrent > 0 {
		base.MaxConcurrent = loaded.MaxConcurrent
	}
	for label, def := range loaded.Triggers {
		base.Triggers[label] = def
	}

	return nil
}
