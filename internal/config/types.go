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

// Package config types define the configuration structures for cf-tracker.
// These types represent settings that can be loaded from YAML configuration
// files, environment variables, or command-line flags.
package config

import "time"

// Config represents the complete configuration for cf-tracker.
// It consolidates settings from various sources and provides a unified
// interface for accessing configuration values throughout the application.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Cache     CacheConfig     `yaml:"cache"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	StateDir  string          `yaml:"state_dir"`
}

// APIConfig describes how to reach the remote problem service.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// CatalogConfig controls how the problem list is paged. BatchSize records
// are fetched per request and shown PageSize at a time.
type CatalogConfig struct {
	BatchSize int `yaml:"batch_size"`
	PageSize  int `yaml:"page_size"`
}

// CacheConfig controls the short-lived response cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// AnalyticsConfig holds defaults for the stats command.
type AnalyticsConfig struct {
	TopTags       int    `yaml:"top_tags"`
	DefaultWindow string `yaml:"default_window"`
}

// LogConfig selects the log level and handler format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with the defaults used when no file or
// environment override is present.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8000/api",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Catalog: CatalogConfig{
			BatchSize: 150,
			PageSize:  50,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			TopTags:       14,
			DefaultWindow: "1y",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		StateDir: "~/.cftracker",
	}
}
