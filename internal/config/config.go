// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wardenhq/warden/internal/enforce"
	"github.com/wardenhq/warden/internal/ratelimit"
	"github.com/wardenhq/warden/internal/risk"
	"github.com/wardenhq/warden/internal/rules"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server" validate:"required"`
	Logging   LoggingConfig   `koanf:"logging"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Rules     []RuleConfig    `koanf:"rules" validate:"dive"`
	Risk      risk.Config     `koanf:"risk"`
	Enforce   EnforceConfig   `koanf:"enforce"`
	Storage   StorageConfig   `koanf:"storage"`
	Jobs      JobsConfig      `koanf:"jobs"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host        string        `koanf:"host" validate:"required"`
	Port        int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`

	// API request limiting (httprate middleware), separate from the
	// domain rate limiter.
	APIRateLimit  int           `koanf:"api_rate_limit" validate:"gte=0"`
	APIRateWindow time.Duration `koanf:"api_rate_window"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// PolicyConfig is one named rate limit policy.
type PolicyConfig struct {
	MaxHits int           `koanf:"max_hits" validate:"gt=0"`
	Window  time.Duration `koanf:"window" validate:"gt=0"`
}

// RateLimitConfig configures the sliding-window limiter.
type RateLimitConfig struct {
	// Policies maps limit keys to their policies. Empty means the
	// built-in defaults.
	Policies map[string]PolicyConfig `koanf:"policies" validate:"dive"`
}

// RuleConfig is the on-disk shape of one behavior rule. Exactly one
// condition block must be set, matching the type.
type RuleConfig struct {
	ID       string `koanf:"id" validate:"required"`
	Name     string `koanf:"name"`
	Type     string `koanf:"type" validate:"required"`
	Enabled  bool   `koanf:"enabled"`
	Severity string `koanf:"severity" validate:"required"`

	Log          bool `koanf:"log"`
	Alert        bool `koanf:"alert"`
	AutoAction   bool `koanf:"auto_action"`
	NotifyAdmins bool `koanf:"notify_admins"`

	Movement  *MovementConfig `koanf:"movement"`
	RateLimit *RateRuleConfig `koanf:"rate_limit"`
	Pattern   *PatternConfig  `koanf:"pattern"`
}

// MovementConfig holds movement rule conditions.
type MovementConfig struct {
	MaxSpeed         float64       `koanf:"max_speed"`
	TeleportDistance float64       `koanf:"teleport_distance"`
	TimeWindow       time.Duration `koanf:"time_window"`
}

// RateRuleConfig holds ad-hoc rate rule conditions.
type RateRuleConfig struct {
	Threshold  int           `koanf:"threshold"`
	TimeWindow time.Duration `koanf:"time_window"`
}

// PatternConfig holds pattern rule conditions.
type PatternConfig struct {
	Pattern        string        `koanf:"pattern"`
	MinOccurrences int           `koanf:"min_occurrences"`
	TimeWindow     time.Duration `koanf:"time_window"`
}

// EnforceConfig configures enforcement outputs.
type EnforceConfig struct {
	Webhook enforce.WebhookConfig `koanf:"webhook"`
}

// StorageConfig selects the profile store backend.
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend string `koanf:"backend" validate:"oneof=memory badger"`
	Path    string `koanf:"path"`
}

// JobsConfig tunes the background maintenance jobs.
type JobsConfig struct {
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gt=0"`
	DecayInterval   time.Duration `koanf:"decay_interval" validate:"gt=0"`
	DecayAmount     int           `koanf:"decay_amount" validate:"gt=0"`
}

// SecurityConfig holds cross-cutting enforcement behavior.
type SecurityConfig struct {
	// StrictMode rejects actions from suspicious identities outright
	// instead of only flagging them.
	StrictMode bool `koanf:"strict_mode"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8087,
			Timeout:       30 * time.Second,
			Environment:   "development",
			APIRateLimit:  100,
			APIRateWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		RateLimit: RateLimitConfig{
			Policies: map[string]PolicyConfig{},
		},
		Risk: risk.DefaultConfig(),
		Enforce: EnforceConfig{
			Webhook: enforce.WebhookConfig{
				Enabled: false,
			},
		},
		Storage: StorageConfig{
			Backend: "memory",
			Path:    "/data/warden",
		},
		Jobs: JobsConfig{
			CleanupInterval: time.Minute,
			DecayInterval:   time.Hour,
			DecayAmount:     5,
		},
		Security: SecurityConfig{
			StrictMode: false,
		},
	}
}

var validate = validator.New()

// Validate checks the whole configuration, including the cross-field
// constraints the struct tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk config: %w", err)
	}
	if c.Storage.Backend == "badger" && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required for the badger backend")
	}
	for key, policy := range c.RateLimit.Policies {
		if policy.MaxHits <= 0 || policy.Window <= 0 {
			return fmt.Errorf("rate limit policy %q: %w", key, ratelimit.ErrInvalidPolicy)
		}
	}
	if _, err := c.BuildRules(); err != nil {
		return err
	}
	return nil
}

// Policies converts the configured limit policies. Empty configuration
// falls back to the built-in defaults.
func (c *Config) Policies() map[string]ratelimit.Policy {
	if len(c.RateLimit.Policies) == 0 {
		return ratelimit.DefaultPolicies()
	}
	out := make(map[string]ratelimit.Policy, len(c.RateLimit.Policies))
	for key, policy := range c.RateLimit.Policies {
		out[key] = ratelimit.Policy{MaxHits: policy.MaxHits, Window: policy.Window}
	}
	return out
}

// BuildRules converts the configured rules into validated domain rules.
// Empty configuration falls back to the built-in rule set.
func (c *Config) BuildRules() ([]rules.Rule, error) {
	if len(c.Rules) == 0 {
		return rules.DefaultRules(), nil
	}

	out := make([]rules.Rule, 0, len(c.Rules))
	for _, rc := range c.Rules {
		rule := rules.Rule{
			ID:       rc.ID,
			Name:     rc.Name,
			Type:     rules.RuleType(rc.Type),
			Enabled:  rc.Enabled,
			Severity: rules.RuleSeverity(rc.Severity),
			Actions: rules.RuleActions{
				Log:          rc.Log,
				Alert:        rc.Alert,
				AutoAction:   rc.AutoAction,
				NotifyAdmins: rc.NotifyAdmins,
			},
		}
		if rc.Movement != nil {
			rule.Movement = &rules.MovementConditions{
				MaxSpeed:         rc.Movement.MaxSpeed,
				TeleportDistance: rc.Movement.TeleportDistance,
				TimeWindow:       rc.Movement.TimeWindow,
			}
		}
		if rc.RateLimit != nil {
			rule.RateLimit = &rules.RateLimitConditions{
				Threshold:  rc.RateLimit.Threshold,
				TimeWindow: rc.RateLimit.TimeWindow,
			}
		}
		if rc.Pattern != nil {
			rule.Pattern = &rules.PatternConditions{
				Pattern:        rc.Pattern.Pattern,
				MinOccurrences: rc.Pattern.MinOccurrences,
				TimeWindow:     rc.Pattern.TimeWindow,
			}
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.ID, err)
		}
		out = append(out, rule)
	}
	return out, nil
}
