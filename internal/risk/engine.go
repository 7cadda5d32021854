// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/rules"
)

// ErrBannedPromotion rejects promoting an identity that is currently
// banned; unban first.
var ErrBannedPromotion = errors.New("cannot promote a banned identity")

// Config tunes the risk engine.
type Config struct {
	// SuspiciousThreshold is the risk score at or above which an identity
	// is classified suspicious.
	SuspiciousThreshold int `json:"suspicious_threshold" koanf:"suspicious_threshold" validate:"gt=0,lte=100"`

	// BanDuration is the default expiry window stamped on new bans. The
	// expiry is advisory: bans stay in force until an explicit unban.
	BanDuration time.Duration `json:"ban_duration" koanf:"ban_duration" validate:"gt=0"`

	// MaxViolations bounds the violation history kept per profile; oldest
	// entries are dropped first. Zero means the default.
	MaxViolations int `json:"max_violations" koanf:"max_violations" validate:"gte=0"`

	Weights Weights `json:"weights" koanf:"weights"`
}

// DefaultConfig returns the engine defaults: threshold 70, 24h bans.
func DefaultConfig() Config {
	return Config{
		SuspiciousThreshold: 70,
		BanDuration:         24 * time.Hour,
		MaxViolations:       100,
		Weights:             DefaultWeights(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SuspiciousThreshold <= 0 || c.SuspiciousThreshold > MaxRiskScore {
		return fmt.Errorf("suspicious threshold must be in (0, %d], got %d", MaxRiskScore, c.SuspiciousThreshold)
	}
	if c.BanDuration <= 0 {
		return fmt.Errorf("ban duration must be positive, got %s", c.BanDuration)
	}
	return c.Weights.Validate()
}

// Clock supplies the current time; injectable for tests.
type Clock func() time.Time

// Engine applies violations to profiles and manages trust transitions.
// Every mutation is a read-modify-write cycle against the store; the
// engine's mutex serializes those cycles so concurrent violations for one
// identity never lose updates.
type Engine struct {
	mu    sync.Mutex
	store Store
	cfg   Config
	clock Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates a risk engine over the given store. The configuration
// must already be validated.
func NewEngine(store Store, cfg Config, opts ...Option) *Engine {
	if cfg.MaxViolations <= 0 {
		cfg.MaxViolations = DefaultConfig().MaxViolations
	}
	e := &Engine{
		store: store,
		cfg:   cfg,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Profile returns the stored profile, or a fresh zero-score profile when
// the identity has never violated. Fresh profiles are not persisted.
func (e *Engine) Profile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := e.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return e.newProfile(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Profiles returns every persisted profile.
func (e *Engine) Profiles(ctx context.Context) ([]*Profile, error) {
	return e.store.List(ctx)
}

// RecordViolation applies one security event to the identity's profile:
// appends it to the violation history, bumps the counter matching the
// rule's enforcement tier, raises the risk score by the severity weight,
// and recomputes trust. Returns the updated profile.
func (e *Engine) RecordViolation(ctx context.Context, event rules.SecurityEvent, tier rules.RuleSeverity) (*Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.loadOrCreate(ctx, event.UserID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	profile.Violations = append(profile.Violations, event)
	if over := len(profile.Violations) - e.cfg.MaxViolations; over > 0 {
		profile.Violations = profile.Violations[over:]
	}

	switch tier {
	case rules.SeverityWarning:
		profile.Warnings++
	case rules.SeverityKick:
		profile.Kicks++
	case rules.SeverityBan:
		profile.Bans++
	}

	profile.RiskScore = clampScore(profile.RiskScore + e.cfg.Weights.For(event.Severity))
	ts := event.Timestamp
	if ts.IsZero() {
		ts = now
	}
	profile.LastViolation = &ts
	profile.UpdatedAt = now
	profile.recomputeTrust(e.cfg.SuspiciousThreshold)

	if err := e.store.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	logging.Debug().
		Str("user_id", profile.UserID).
		Str("rule_id", event.RuleID).
		Str("severity", string(event.Severity)).
		Int("risk_score", profile.RiskScore).
		Str("trust_level", string(profile.TrustLevel)).
		Msg("Violation recorded")

	return profile, nil
}

// Ban marks the identity banned with the configured expiry window. The
// ban holds until Unban regardless of expiry or decay.
func (e *Engine) Ban(ctx context.Context, userID string) (*Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	expiry := now.Add(e.cfg.BanDuration)
	profile.Banned = true
	profile.BanExpiry = &expiry
	profile.UpdatedAt = now
	profile.recomputeTrust(e.cfg.SuspiciousThreshold)

	if err := e.store.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	logging.Warn().
		Str("user_id", userID).
		Time("ban_expiry", expiry).
		Msg("Identity banned")

	return profile, nil
}

// Unban clears the ban; this is the only transition out of the banned
// trust level.
func (e *Engine) Unban(ctx context.Context, userID string) (*Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Banned = false
	profile.BanExpiry = nil
	profile.UpdatedAt = e.clock()
	profile.recomputeTrust(e.cfg.SuspiciousThreshold)

	if err := e.store.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	logging.Info().Str("user_id", userID).Msg("Identity unbanned")
	return profile, nil
}

// Promote marks the identity trusted. Absence of violations never earns
// this on its own; it is an operator action. Banned identities cannot be
// promoted.
func (e *Engine) Promote(ctx context.Context, userID string) (*Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Banned {
		return nil, ErrBannedPromotion
	}

	profile.Promoted = true
	profile.UpdatedAt = e.clock()
	profile.recomputeTrust(e.cfg.SuspiciousThreshold)

	if err := e.store.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	return profile, nil
}

// Demote revokes a promotion.
func (e *Engine) Demote(ctx context.Context, userID string) (*Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Promoted = false
	profile.UpdatedAt = e.clock()
	profile.recomputeTrust(e.cfg.SuspiciousThreshold)

	if err := e.store.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	return profile, nil
}

// Decay lowers every profile's risk score by amount, clamped at zero.
// Decay alone never lifts a ban: the banned level is sticky until Unban.
// Returns the number of profiles touched.
func (e *Engine) Decay(ctx context.Context, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("decay amount must be positive, got %d", amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	profiles, err := e.store.List(ctx)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, profile := range profiles {
		if profile.RiskScore == MinRiskScore {
			continue
		}
		profile.RiskScore = clampScore(profile.RiskScore - amount)
		profile.UpdatedAt = e.clock()
		profile.recomputeTrust(e.cfg.SuspiciousThreshold)

		if err := e.store.Put(ctx, profile); err != nil {
			return touched, fmt.Errorf("persist profile %s: %w", profile.UserID, err)
		}
		touched++
	}

	if touched > 0 {
		logging.Debug().Int("profiles", touched).Int("amount", amount).Msg("Risk scores decayed")
	}
	return touched, nil
}

func (e *Engine) loadOrCreate(ctx context.Context, userID string) (*Profile, error) {
	profile, err := e.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return e.newProfile(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (e *Engine) newProfile(userID string) *Profile {
	now := e.clock()
	return &Profile{
		UserID:     userID,
		RiskScore:  MinRiskScore,
		TrustLevel: TrustNormal,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func clampScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}
