// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package risk

import (
	"fmt"
	"time"

	"github.com/wardenhq/warden/internal/rules"
)

// TrustLevel classifies an identity for enforcement purposes.
type TrustLevel string

const (
	TrustTrusted    TrustLevel = "trusted"
	TrustNormal     TrustLevel = "normal"
	TrustSuspicious TrustLevel = "suspicious"
	TrustBanned     TrustLevel = "banned"
)

const (
	// MinRiskScore and MaxRiskScore bound the accumulator. Increments and
	// decay clamp to this range instead of failing.
	MinRiskScore = 0
	MaxRiskScore = 100
)

// Profile is the security record for one identity. TrustLevel is derived
// state: it is recomputed from the score, ban flag, and promotion flag on
// every mutation and must never be written directly by callers.
type Profile struct {
	UserID        string                `json:"user_id"`
	RiskScore     int                   `json:"risk_score"`
	Violations    []rules.SecurityEvent `json:"violations"`
	Warnings      int                   `json:"warnings"`
	Kicks         int                   `json:"kicks"`
	Bans          int                   `json:"bans"`
	LastViolation *time.Time            `json:"last_violation,omitempty"`
	Banned        bool                  `json:"banned"`
	BanExpiry     *time.Time            `json:"ban_expiry,omitempty"`
	Promoted      bool                  `json:"promoted"`
	TrustLevel    TrustLevel            `json:"trust_level"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// recomputeTrust derives the trust level. Banned wins over everything and
// only an explicit unban leaves it; an elevated score overrides a
// promotion until it drops back below the threshold.
func (p *Profile) recomputeTrust(suspiciousThreshold int) {
	switch {
	case p.Banned:
		p.TrustLevel = TrustBanned
	case p.RiskScore >= suspiciousThreshold:
		p.TrustLevel = TrustSuspicious
	case p.Promoted:
		p.TrustLevel = TrustTrusted
	default:
		p.TrustLevel = TrustNormal
	}
}

// clone returns a deep copy so callers cannot mutate stored state.
func (p *Profile) clone() *Profile {
	cp := *p
	if p.Violations != nil {
		cp.Violations = make([]rules.SecurityEvent, len(p.Violations))
		copy(cp.Violations, p.Violations)
	}
	if p.LastViolation != nil {
		t := *p.LastViolation
		cp.LastViolation = &t
	}
	if p.BanExpiry != nil {
		t := *p.BanExpiry
		cp.BanExpiry = &t
	}
	return &cp
}

// Weights maps event severities to risk score increments. The weights are
// deployment configuration; Validate enforces that they are positive and
// monotonic so a higher severity never scores below a lower one.
type Weights struct {
	Low      int `json:"low" koanf:"low" validate:"gt=0"`
	Medium   int `json:"medium" koanf:"medium" validate:"gtefield=Low"`
	High     int `json:"high" koanf:"high" validate:"gtefield=Medium"`
	Critical int `json:"critical" koanf:"critical" validate:"gtefield=High"`
}

// DefaultWeights returns the built-in severity weights. A single critical
// event crosses the default suspicious threshold on its own.
func DefaultWeights() Weights {
	return Weights{
		Low:      5,
		Medium:   10,
		High:     25,
		Critical: 75,
	}
}

// Validate checks positivity and monotonicity.
func (w Weights) Validate() error {
	if w.Low <= 0 {
		return fmt.Errorf("low weight must be positive, got %d", w.Low)
	}
	if w.Medium < w.Low || w.High < w.Medium || w.Critical < w.High {
		return fmt.Errorf("weights must be monotonic in severity: low=%d medium=%d high=%d critical=%d",
			w.Low, w.Medium, w.High, w.Critical)
	}
	return nil
}

// For returns the increment for the given event severity. Unknown
// severities score as low.
func (w Weights) For(severity rules.EventSeverity) int {
	switch severity {
	case rules.EventSeverityCritical:
		return w.Critical
	case rules.EventSeverityHigh:
		return w.High
	case rules.EventSeverityMedium:
		return w.Medium
	default:
		return w.Low
	}
}
