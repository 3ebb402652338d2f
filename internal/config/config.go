// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration management for cf-tracker with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file
//  4. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirseerhq/cf-tracker/internal/state"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .cftracker.yaml (current directory)
//   - .cftracker.yml (current directory)
//   - ~/.cftracker/config.yaml
//   - ~/.cftracker/config.yml
//
// Environment variables are applied after loading the config file.
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".cftracker.yaml",
			".cftracker.yml",
			filepath.Join(os.Getenv("HOME"), ".cftracker", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".cftracker", "config.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.StateDir = expandPath(cfg.StateDir)

	return cfg, nil
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Malformed numeric or duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	if baseURL := os.Getenv("CFTRACKER_API_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if timeout := os.Getenv("CFTRACKER_TIMEOUT"); timeout != "" {
		if d, err := parsePositiveDuration(timeout); err == nil {
			cfg.API.Timeout = d
		}
	}

	if batchSize := os.Getenv("CFTRACKER_BATCH_SIZE"); batchSize != "" {
		if size, err := parsePositiveInt(batchSize); err == nil {
			cfg.Catalog.BatchSize = size
		}
	}
	if pageSize := os.Getenv("CFTRACKER_PAGE_SIZE"); pageSize != "" {
		if size, err := parsePositiveInt(pageSize); err == nil {
			cfg.Catalog.PageSize = size
		}
	}

	if ttl := os.Getenv("CFTRACKER_CACHE_TTL"); ttl != "" {
		if d, err := parsePositiveDuration(ttl); err == nil {
			cfg.Cache.TTL = d
		}
	}

	if stateDir := os.Getenv("CFTRACKER_STATE_DIR"); stateDir != "" {
		cfg.StateDir = stateDir
	}

	if level := os.Getenv("CFTRACKER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration from '%s': %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got: %s", d)
	}
	return d, nil
}

// SessionPath returns the file the last-used handle is persisted to.
func (c *Config) SessionPath() string {
	return state.DefaultSessionPath(c.StateDir)
}

// Validate checks if the configuration contains valid values. The batch
// size must cover a whole number of display pages so batches map onto pages.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL cannot be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API timeout must be positive, got: %s", c.API.Timeout)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got: %d", c.API.MaxRetries)
	}
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got: %d", c.Catalog.PageSize)
	}
	if c.Catalog.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got: %d", c.Catalog.BatchSize)
	}
	if c.Catalog.BatchSize%c.Catalog.PageSize != 0 {
		return fmt.Errorf("batch size %d must be a multiple of page size %d", c.Catalog.BatchSize, c.Catalog.PageSize)
	}
	if c.Catalog.BatchSize > 500 {
		return fmt.Errorf("batch size %d exceeds the service limit of 500", c.Catalog.BatchSize)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %s", c.Cache.TTL)
	}
	if c.Analytics.TopTags <= 0 {
		return fmt.Errorf("top tags must be positive, got: %d", c.Analytics.TopTags)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}
