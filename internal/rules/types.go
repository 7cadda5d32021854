// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package rules

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// RuleType identifies the category of behavior a rule inspects.
type RuleType string

const (
	// RuleTypeMovement validates position deltas against speed and
	// teleport thresholds.
	RuleTypeMovement RuleType = "movement"

	// RuleTypeAction flags bursts of a single action type.
	RuleTypeAction RuleType = "action"

	// RuleTypeRateLimit is an ad-hoc threshold-over-window check, distinct
	// from the limiter's named policies.
	RuleTypeRateLimit RuleType = "rate_limit"

	// RuleTypePattern matches action sequences against a configured pattern.
	RuleTypePattern RuleType = "pattern"

	// RuleTypeStatistical uses the same deterministic threshold contract as
	// pattern rules; it exists as a separate category for configuration.
	RuleTypeStatistical RuleType = "statistical"
)

// RuleSeverity declares the enforcement tier a rule escalates to.
type RuleSeverity string

const (
	SeverityWarning     RuleSeverity = "warning"
	SeverityKick        RuleSeverity = "kick"
	SeverityBan         RuleSeverity = "ban"
	SeverityInvestigate RuleSeverity = "investigate"
)

// EventSeverity grades a produced security event.
type EventSeverity string

const (
	EventSeverityLow      EventSeverity = "low"
	EventSeverityMedium   EventSeverity = "medium"
	EventSeverityHigh     EventSeverity = "high"
	EventSeverityCritical EventSeverity = "critical"
)

// EventSeverity maps a rule's enforcement tier onto the event grading
// scale. Investigate produces the mildest events: it asks for human review
// rather than automatic escalation.
func (s RuleSeverity) EventSeverity() EventSeverity {
	switch s {
	case SeverityInvestigate:
		return EventSeverityLow
	case SeverityWarning:
		return EventSeverityMedium
	case SeverityKick:
		return EventSeverityHigh
	case SeverityBan:
		return EventSeverityCritical
	default:
		return EventSeverityLow
	}
}

// Valid reports whether s is a known rule severity.
func (s RuleSeverity) Valid() bool {
	switch s {
	case SeverityWarning, SeverityKick, SeverityBan, SeverityInvestigate:
		return true
	}
	return false
}

// RuleActions are the side-effect flags consulted by the enforcement
// dispatcher when a rule fires.
type RuleActions struct {
	Log          bool `json:"log"`
	Alert        bool `json:"alert"`
	AutoAction   bool `json:"auto_action"`
	NotifyAdmins bool `json:"notify_admins"`
}

// MovementConditions configures a movement rule.
type MovementConditions struct {
	// MaxSpeed is the maximum plausible speed in world units per second.
	MaxSpeed float64 `json:"max_speed"`

	// TeleportDistance flags any positional delta above this many units
	// within TimeWindow, regardless of computed speed. Zero disables the
	// teleport check.
	TeleportDistance float64 `json:"teleport_distance"`

	// TimeWindow bounds the teleport check.
	TimeWindow time.Duration `json:"time_window"`
}

// RateLimitConditions configures an ad-hoc rate check over the action
// history.
type RateLimitConditions struct {
	// Threshold is the maximum occurrences of the event's action type
	// within TimeWindow before the rule fires.
	Threshold int `json:"threshold"`

	// TimeWindow is the trailing interval to count over.
	TimeWindow time.Duration `json:"time_window"`
}

// PatternConditions configures action, pattern, and statistical rules.
type PatternConditions struct {
	// Pattern is matched against recent action types. The default matcher
	// supports path-style globs ("trade*"); an exact string matches itself.
	Pattern string `json:"pattern"`

	// MinOccurrences is the match count within TimeWindow that triggers
	// the rule.
	MinOccurrences int `json:"min_occurrences"`

	// TimeWindow is the trailing interval to count over.
	TimeWindow time.Duration `json:"time_window"`
}

// Rule is one anti-cheat rule. Exactly one condition payload must be set,
// and it must correspond to Type; Validate enforces this closed-union
// shape at registration time.
type Rule struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     RuleType     `json:"type"`
	Enabled  bool         `json:"enabled"`
	Severity RuleSeverity `json:"severity"`
	Actions  RuleActions  `json:"actions"`

	Movement  *MovementConditions  `json:"movement,omitempty"`
	RateLimit *RateLimitConditions `json:"rate_limit,omitempty"`
	Pattern   *PatternConditions   `json:"pattern,omitempty"`
}

// Validation errors. ErrDuplicateRule is returned by the registry;
// the others by Rule.Validate.
var (
	ErrDuplicateRule   = errors.New("rule id already registered")
	ErrUnknownRuleType = errors.New("unknown rule type")
	ErrInvalidRule     = errors.New("invalid rule")
)

// Validate rejects rules with missing identity, unknown tags, or a
// condition payload that does not match the declared type.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRule)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("%w: rule %q: severity %q", ErrInvalidRule, r.ID, r.Severity)
	}

	switch r.Type {
	case RuleTypeMovement:
		if r.Movement == nil || r.RateLimit != nil || r.Pattern != nil {
			return fmt.Errorf("%w: rule %q: movement rule requires exactly the movement payload", ErrInvalidRule, r.ID)
		}
		if r.Movement.MaxSpeed <= 0 {
			return fmt.Errorf("%w: rule %q: max_speed must be positive", ErrInvalidRule, r.ID)
		}
		if r.Movement.TeleportDistance < 0 || r.Movement.TimeWindow < 0 {
			return fmt.Errorf("%w: rule %q: teleport thresholds must not be negative", ErrInvalidRule, r.ID)
		}
	case RuleTypeRateLimit:
		if r.RateLimit == nil || r.Movement != nil || r.Pattern != nil {
			return fmt.Errorf("%w: rule %q: rate_limit rule requires exactly the rate_limit payload", ErrInvalidRule, r.ID)
		}
		if r.RateLimit.Threshold <= 0 || r.RateLimit.TimeWindow <= 0 {
			return fmt.Errorf("%w: rule %q: threshold and time_window must be positive", ErrInvalidRule, r.ID)
		}
	case RuleTypeAction, RuleTypePattern, RuleTypeStatistical:
		if r.Pattern == nil || r.Movement != nil || r.RateLimit != nil {
			return fmt.Errorf("%w: rule %q: %s rule requires exactly the pattern payload", ErrInvalidRule, r.ID, r.Type)
		}
		if r.Pattern.Pattern == "" {
			return fmt.Errorf("%w: rule %q: pattern is required", ErrInvalidRule, r.ID)
		}
		if r.Pattern.MinOccurrences <= 0 || r.Pattern.TimeWindow <= 0 {
			return fmt.Errorf("%w: rule %q: min_occurrences and time_window must be positive", ErrInvalidRule, r.ID)
		}
	default:
		return fmt.Errorf("%w: rule %q: %q", ErrUnknownRuleType, r.ID, r.Type)
	}

	return nil
}

// Position is a 2D world coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance to q.
func (p Position) DistanceTo(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// ActionEvent is one inbound player action presented for evaluation.
type ActionEvent struct {
	// UserID is the caller-supplied identity. The engine trusts but does
	// not authenticate it.
	UserID string `json:"user_id"`

	// Action is the action class: chat, trade, movement, voice-command,
	// api-call, and so on. It doubles as the limiter key.
	Action string `json:"action"`

	// Timestamp is the client-reported event time.
	Timestamp time.Time `json:"timestamp"`

	// Position is set for movement actions.
	Position *Position `json:"position,omitempty"`
}

// SecurityEvent records one rule violation. Immutable after creation
// except for Resolved, which only an external moderation actor flips.
type SecurityEvent struct {
	ID          string        `json:"id"`
	RuleID      string        `json:"rule_id"`
	Type        RuleType      `json:"type"`
	Severity    EventSeverity `json:"severity"`
	UserID      string        `json:"user_id"`
	Timestamp   time.Time     `json:"timestamp"`
	Location    *Position     `json:"location,omitempty"`
	Description string        `json:"description"`
	Resolved    bool          `json:"resolved"`
}
