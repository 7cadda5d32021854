// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrStaleUpdate signals a movement sample whose timestamp is not after
// the previous one (duplicate or out-of-order packet). The input cannot be
// evaluated; it is not a violation.
var ErrStaleUpdate = errors.New("stale movement update")

// Result is the outcome of evaluating one action event.
type Result struct {
	// Events are the violations produced, in rule registration order.
	Events []SecurityEvent

	// Stale is true when movement rules were skipped because the sample's
	// elapsed time was zero or negative. The decision for those rules is
	// "cannot evaluate", never "violation".
	Stale bool
}

// Evaluator inspects action events against the registered rule set.
// Evaluation is stateless per call: all prior state comes from the
// injected History, and the evaluator itself never mutates it.
type Evaluator struct {
	registry *Registry
	history  *History
	matcher  PatternMatcher
}

// NewEvaluator creates an evaluator over the given rule registry and
// action history. A nil matcher defaults to GlobMatcher.
func NewEvaluator(registry *Registry, history *History, matcher PatternMatcher) *Evaluator {
	if matcher == nil {
		matcher = GlobMatcher{}
	}
	return &Evaluator{
		registry: registry,
		history:  history,
		matcher:  matcher,
	}
}

// Evaluate runs every enabled rule whose type applies to the event and
// returns all produced security events. Multiple rules may fire for one
// input; results keep rule registration order and are never re-ordered by
// severity.
func (e *Evaluator) Evaluate(event ActionEvent) Result {
	var result Result

	for _, rule := range e.registry.Enabled() {
		switch rule.Type {
		case RuleTypeMovement:
			sec, err := e.checkMovement(rule, event)
			if errors.Is(err, ErrStaleUpdate) {
				result.Stale = true
				continue
			}
			if sec != nil {
				result.Events = append(result.Events, *sec)
			}
		case RuleTypeRateLimit:
			if sec := e.checkRate(rule, event); sec != nil {
				result.Events = append(result.Events, *sec)
			}
		case RuleTypeAction, RuleTypePattern, RuleTypeStatistical:
			if sec := e.checkPattern(rule, event); sec != nil {
				result.Events = append(result.Events, *sec)
			}
		}
	}

	return result
}

// checkMovement validates the event's position against the previous known
// sample. Events without a position are not movement samples and are
// skipped. The first sighting of an identity establishes a baseline and
// cannot violate.
func (e *Evaluator) checkMovement(rule Rule, event ActionEvent) (*SecurityEvent, error) {
	if event.Position == nil {
		return nil, nil
	}

	prev, ok := e.history.LastMovement(event.UserID)
	if !ok {
		return nil, nil
	}

	elapsed := event.Timestamp.Sub(prev.Timestamp)
	if elapsed <= 0 {
		return nil, fmt.Errorf("%w: elapsed %s", ErrStaleUpdate, elapsed)
	}

	cond := rule.Movement
	distance := prev.Position.DistanceTo(*event.Position)

	if cond.TeleportDistance > 0 && distance > cond.TeleportDistance && elapsed <= cond.TimeWindow {
		return e.newEvent(rule, event, fmt.Sprintf(
			"position jumped %.1f units in %s (teleport threshold %.1f)",
			distance, elapsed, cond.TeleportDistance,
		)), nil
	}

	speed := distance / elapsed.Seconds()
	if speed > cond.MaxSpeed {
		return e.newEvent(rule, event, fmt.Sprintf(
			"speed %.1f units/s exceeds limit %.1f units/s",
			speed, cond.MaxSpeed,
		)), nil
	}

	return nil, nil
}

// checkRate counts occurrences of the event's action type within the
// rule's window, the current event included, against the ad-hoc threshold.
func (e *Evaluator) checkRate(rule Rule, event ActionEvent) *SecurityEvent {
	cond := rule.RateLimit
	prior := e.history.CountMatching(event.UserID, cond.TimeWindow, func(rec ActionRecord) bool {
		return rec.Action == event.Action
	})

	if prior+1 <= cond.Threshold {
		return nil
	}

	return e.newEvent(rule, event, fmt.Sprintf(
		"%d %q actions in %s exceeds threshold %d",
		prior+1, event.Action, cond.TimeWindow, cond.Threshold,
	))
}

// checkPattern counts pattern matches over the recent action history, the
// current event included when it matches.
func (e *Evaluator) checkPattern(rule Rule, event ActionEvent) *SecurityEvent {
	cond := rule.Pattern
	matches := e.history.CountMatching(event.UserID, cond.TimeWindow, func(rec ActionRecord) bool {
		return e.matcher.Matches(cond.Pattern, rec.Action)
	})
	if e.matcher.Matches(cond.Pattern, event.Action) {
		matches++
	}

	if matches < cond.MinOccurrences {
		return nil
	}

	return e.newEvent(rule, event, fmt.Sprintf(
		"pattern %q matched %d times in %s (minimum %d)",
		cond.Pattern, matches, cond.TimeWindow, cond.MinOccurrences,
	))
}

// newEvent builds a security event carrying the rule's severity.
func (e *Evaluator) newEvent(rule Rule, event ActionEvent, description string) *SecurityEvent {
	return &SecurityEvent{
		ID:          uuid.NewString(),
		RuleID:      rule.ID,
		Type:        rule.Type,
		Severity:    rule.Severity.EventSeverity(),
		UserID:      event.UserID,
		Timestamp:   event.Timestamp,
		Location:    event.Position,
		Description: description,
	}
}

// RecordedAt is a convenience for callers recording the evaluated event
// into history after evaluation.
func RecordedAt(event ActionEvent) ActionRecord {
	return ActionRecord{
		Action:    event.Action,
		Timestamp: event.Timestamp,
		Position:  event.Position,
	}
}

// DefaultRules returns the built-in rule set used when configuration
// supplies none: a movement speed check and a chat flood check.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "movement_speed",
			Name:     "Movement speed",
			Type:     RuleTypeMovement,
			Enabled:  true,
			Severity: SeverityWarning,
			Actions:  RuleActions{Log: true},
			Movement: &MovementConditions{
				MaxSpeed:         500,
				TeleportDistance: 2000,
				TimeWindow:       time.Second,
			},
		},
		{
			ID:       "chat_flood",
			Name:     "Chat flood",
			Type:     RuleTypeRateLimit,
			Enabled:  true,
			Severity: SeverityWarning,
			Actions:  RuleActions{Log: true, Alert: true},
			RateLimit: &RateLimitConditions{
				Threshold:  20,
				TimeWindow: 30 * time.Second,
			},
		},
	}
}
