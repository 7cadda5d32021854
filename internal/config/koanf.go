// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"warden.yaml",
	"warden.yml",
	"/etc/warden/warden.yaml",
	"/etc/warden/warden.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "WARDEN_CONFIG"

// envPrefix marks the environment variables this process reads.
const envPrefix = "WARDEN_"

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. WARDEN_-prefixed environment variables (highest priority)
//
// The result is validated before being returned.
func Load() (*Config, error) {
	return LoadFile(FindConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile returns the first existing config path, checking the
// WARDEN_CONFIG environment variable before the default locations. Empty
// means no config file is present.
func FindConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps WARDEN_ environment variable names to koanf paths.
// Only explicitly mapped variables are read so unrelated environment
// noise cannot leak into the config.
//
// Examples:
//   - WARDEN_HTTP_PORT         -> server.port
//   - WARDEN_LOG_LEVEL         -> logging.level
//   - WARDEN_RISK_BAN_DURATION -> risk.ban_duration
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// Server mappings
		"http_host":       "server.host",
		"http_port":       "server.port",
		"http_timeout":    "server.timeout",
		"environment":     "server.environment",
		"api_rate_limit":  "server.api_rate_limit",
		"api_rate_window": "server.api_rate_window",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Risk mappings
		"risk_suspicious_threshold": "risk.suspicious_threshold",
		"risk_ban_duration":         "risk.ban_duration",
		"risk_max_violations":       "risk.max_violations",
		"risk_weight_low":           "risk.weights.low",
		"risk_weight_medium":        "risk.weights.medium",
		"risk_weight_high":          "risk.weights.high",
		"risk_weight_critical":      "risk.weights.critical",

		// Enforcement webhook mappings
		"webhook_url":     "enforce.webhook.url",
		"webhook_enabled": "enforce.webhook.enabled",
		"webhook_rate":    "enforce.webhook.rate_per_second",
		"webhook_burst":   "enforce.webhook.burst",
		"webhook_timeout": "enforce.webhook.timeout",

		// Storage mappings
		"storage_backend": "storage.backend",
		"storage_path":    "storage.path",

		// Background job mappings
		"cleanup_interval": "jobs.cleanup_interval",
		"decay_interval":   "jobs.decay_interval",
		"decay_amount":     "jobs.decay_amount",

		// Security mappings
		"strict_mode": "security.strict_mode",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile invokes callback whenever the file changes. The caller
// reloads and swaps its own state; this function only watches.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
