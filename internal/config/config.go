// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

// Package config loads and validates the CoursePilot application
// configuration. Three layers, later layers winning: struct defaults,
// an optional YAML file, and COURSEPILOT_-prefixed environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/coursepilot/coursepilot/internal/logging"
	"github.com/coursepilot/coursepilot/internal/reasoning"
	"github.com/coursepilot/coursepilot/internal/recommend"
	"github.com/coursepilot/coursepilot/internal/vectorindex"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "COURSEPILOT_CONFIG"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is
// unset.
var DefaultConfigPaths = []string{
	"coursepilot.yaml",
	"config/coursepilot.yaml",
	"/etc/coursepilot/coursepilot.yaml",
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig       `koanf:"server" json:"server"`
	Log       logging.Config     `koanf:"log" json:"log"`
	Engine    *recommend.Config  `koanf:"engine" json:"engine"`
	Catalog   StoreConfig        `koanf:"catalog" json:"catalog"`
	UserState StoreConfig        `koanf:"userstate" json:"userstate"`
	Vector    vectorindex.Config `koanf:"vector" json:"vector"`
	Reasoning ReasoningConfig    `koanf:"reasoning" json:"reasoning"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr" json:"addr"`

	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `koanf:"read_timeout" json:"read_timeout"`

	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`

	// RateLimit is the per-IP request budget per RateWindow. Zero
	// disables rate limiting.
	RateLimit int `koanf:"rate_limit" json:"rate_limit"`

	// RateWindow is the rate limit window.
	RateWindow time.Duration `koanf:"rate_window" json:"rate_window"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`
}

// StoreConfig holds settings for one Badger-backed store.
type StoreConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path" json:"path"`
}

// ReasoningConfig wraps the reasoning client settings with an enable
// switch.
type ReasoningConfig struct {
	// Enabled turns recommendation explanations on.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Client configures the generate client.
	Client reasoning.Config `koanf:"client" json:"client"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       100,
			RateWindow:      time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Log:       logging.DefaultConfig(),
		Engine:    recommend.DefaultConfig(),
		Catalog:   StoreConfig{Path: "data/catalog"},
		UserState: StoreConfig{Path: "data/userstate"},
		Vector:    vectorindex.DefaultConfig(),
		Reasoning: ReasoningConfig{
			Enabled: true,
			Client:  reasoning.DefaultConfig(),
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %d", c.Server.RateLimit)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if c.UserState.Path == "" {
		return fmt.Errorf("userstate.path is required")
	}
	if c.Catalog.Path == c.UserState.Path {
		return fmt.Errorf("catalog.path and userstate.path must differ, both are %q", c.Catalog.Path)
	}
	if c.Vector.BaseURL == "" {
		return fmt.Errorf("vector.base_url is required")
	}
	if c.Reasoning.Enabled && c.Reasoning.Client.BaseURL == "" {
		return fmt.Errorf("reasoning.base_url is required when reasoning is enabled")
	}
	if c.Engine == nil {
		return fmt.Errorf("engine configuration is required")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}
