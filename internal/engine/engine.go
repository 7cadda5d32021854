// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wardenhq/warden/internal/enforce"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/ratelimit"
	"github.com/wardenhq/warden/internal/risk"
	"github.com/wardenhq/warden/internal/rules"
)

// ErrInvalidAction rejects checks missing an identity or action type.
var ErrInvalidAction = errors.New("action requires user_id and action type")

// Decision is the outcome of one action check.
type Decision struct {
	Allowed     bool                  `json:"allowed"`
	RateLimited bool                  `json:"rate_limited,omitempty"`
	Reasons     []string              `json:"reasons,omitempty"`
	Remaining   int                   `json:"remaining"`
	ResetTime   time.Time             `json:"reset_time"`
	TrustLevel  risk.TrustLevel       `json:"trust_level"`
	Events      []rules.SecurityEvent `json:"events,omitempty"`
	Stale       bool                  `json:"stale,omitempty"`
}

// Params collects the engine's collaborators.
type Params struct {
	Limits     *ratelimit.Registry
	Limiter    *ratelimit.Limiter
	Rules      *rules.Registry
	Evaluator  *rules.Evaluator
	History    *rules.History
	Risk       *risk.Engine
	Dispatcher *enforce.Dispatcher
	Events     *EventStore

	// StrictMode rejects actions from suspicious identities and actions
	// that produce high or critical violations.
	StrictMode bool

	// Maintenance cadence for Run.
	CleanupInterval time.Duration
	DecayInterval   time.Duration
	DecayAmount     int

	Clock func() time.Time
}

// Engine runs the full check pipeline.
type Engine struct {
	limits     *ratelimit.Registry
	limiter    *ratelimit.Limiter
	rules      *rules.Registry
	evaluator  *rules.Evaluator
	history    *rules.History
	risk       *risk.Engine
	dispatcher *enforce.Dispatcher
	events     *EventStore
	strict     bool

	cleanupInterval time.Duration
	decayInterval   time.Duration
	decayAmount     int
	clock           func() time.Time
}

// New creates an engine from its parts.
func New(p Params) *Engine {
	if p.Events == nil {
		p.Events = NewEventStore(0)
	}
	if p.CleanupInterval <= 0 {
		p.CleanupInterval = time.Minute
	}
	if p.DecayInterval <= 0 {
		p.DecayInterval = time.Hour
	}
	if p.DecayAmount <= 0 {
		p.DecayAmount = 5
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &Engine{
		limits:          p.Limits,
		limiter:         p.Limiter,
		rules:           p.Rules,
		evaluator:       p.Evaluator,
		history:         p.History,
		risk:            p.Risk,
		dispatcher:      p.Dispatcher,
		events:          p.Events,
		strict:          p.StrictMode,
		cleanupInterval: p.CleanupInterval,
		decayInterval:   p.DecayInterval,
		decayAmount:     p.DecayAmount,
		clock:           p.Clock,
	}
}

// Check runs one action through the pipeline: ban gate, rate limiter,
// rule evaluation, risk update, enforcement. The returned Decision is
// complete even when the action is rejected.
func (e *Engine) Check(ctx context.Context, event rules.ActionEvent) (*Decision, error) {
	if event.UserID == "" || event.Action == "" {
		return nil, ErrInvalidAction
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.clock()
	}

	start := e.clock()
	decision := &Decision{Allowed: true}

	// Ban gate first: banned identities never consume quota.
	profile, err := e.risk.Profile(ctx, event.UserID)
	if err != nil {
		// Profile reads fail open: a broken store must not block traffic.
		logging.Error().Err(err).Str("user_id", event.UserID).Msg("Profile lookup failed, failing open")
		profile = &risk.Profile{UserID: event.UserID, TrustLevel: risk.TrustNormal}
	}
	decision.TrustLevel = profile.TrustLevel

	switch {
	case profile.TrustLevel == risk.TrustBanned:
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, "identity is banned")
		e.finish(event, decision, "banned", start)
		return decision, nil
	case e.strict && profile.TrustLevel == risk.TrustSuspicious:
		decision.Allowed = false
		decision.Reasons = append(decision.Reasons, "identity is suspicious (strict mode)")
		e.finish(event, decision, "rejected", start)
		return decision, nil
	}

	allowed := e.limiter.IsAllowed(event.Action, event.UserID)
	decision.Remaining = e.limiter.Remaining(event.Action, event.UserID)
	decision.ResetTime = e.limiter.ResetTime(event.Action, event.UserID)

	if !allowed {
		decision.Allowed = false
		decision.RateLimited = true
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("rate limit exceeded for %q", event.Action))
		metrics.RateLimitRejections.WithLabelValues(event.Action).Inc()
		e.finish(event, decision, "rate_limited", start)
		return decision, nil
	}

	// Evaluate against history as it was before this action, then record
	// the action so the next check sees it as prior state. Stale samples
	// record nothing: malformed telemetry must not become the movement
	// baseline, or a teleport with a duplicated timestamp would slip
	// through and reset the reference position.
	result := e.evaluator.Evaluate(event)
	if !result.Stale {
		e.history.Record(event.UserID, rules.RecordedAt(event))
	}

	decision.Stale = result.Stale
	if result.Stale {
		metrics.StaleUpdates.Inc()
	}

	for _, sec := range result.Events {
		e.events.Add(sec)
		metrics.RuleViolations.WithLabelValues(sec.RuleID, string(sec.Severity)).Inc()

		rule, ok := e.rules.Get(sec.RuleID)
		if !ok {
			// Rule replaced mid-flight; record the violation, skip actions.
			logging.Warn().Str("rule_id", sec.RuleID).Msg("Rule vanished before enforcement")
			continue
		}

		updated, err := e.risk.RecordViolation(ctx, sec, rule.Severity)
		if err != nil {
			logging.Error().Err(err).Str("user_id", event.UserID).Msg("Risk update failed")
		} else {
			profile = updated
		}

		out := e.dispatcher.Dispatch(ctx, sec, rule)
		recordOutcome(out)

		if out.Banned {
			if banned, err := e.risk.Profile(ctx, event.UserID); err == nil {
				profile = banned
			}
		}
	}

	decision.Events = result.Events
	decision.TrustLevel = profile.TrustLevel

	label := "allowed"
	switch {
	case len(result.Events) > 0:
		label = "violation"
	case result.Stale:
		label = "stale"
	}

	if e.strict {
		for _, sec := range result.Events {
			if sec.Severity == rules.EventSeverityHigh || sec.Severity == rules.EventSeverityCritical {
				decision.Allowed = false
				decision.Reasons = append(decision.Reasons,
					fmt.Sprintf("violation of rule %q", sec.RuleID))
				break
			}
		}
	}

	e.finish(event, decision, label, start)
	return decision, nil
}

func (e *Engine) finish(event rules.ActionEvent, decision *Decision, label string, start time.Time) {
	metrics.ActionChecksTotal.WithLabelValues(event.Action, label).Inc()
	metrics.ActionCheckDuration.WithLabelValues(event.Action).Observe(e.clock().Sub(start).Seconds())

	logging.Debug().
		Str("user_id", event.UserID).
		Str("action", event.Action).
		Bool("allowed", decision.Allowed).
		Str("decision", label).
		Int("events", len(decision.Events)).
		Msg("Action checked")
}

func recordOutcome(out enforce.Outcome) {
	if out.Alerted > 0 || out.AdminsPinged > 0 {
		metrics.RecordEnforcement("alert", true)
	}
	if out.Disconnected {
		metrics.RecordEnforcement("disconnect", true)
	}
	if out.Banned {
		metrics.RecordEnforcement("ban", true)
	}
	if out.Flagged {
		metrics.RecordEnforcement("flag", true)
	}
	for i := 0; i < out.Failures; i++ {
		metrics.RecordEnforcement("downstream", false)
	}
}

// Events exposes the security event review store.
func (e *Engine) Events() *EventStore { return e.events }

// Limits exposes the limit policy registry.
func (e *Engine) Limits() *ratelimit.Registry { return e.limits }

// Rules exposes the behavior rule registry.
func (e *Engine) Rules() *rules.Registry { return e.rules }

// Risk exposes the risk engine for profile administration.
func (e *Engine) Risk() *risk.Engine { return e.risk }

// ReplacePolicies atomically swaps the limit policy set. Recorded hits
// survive so identities cannot reset their windows via config reloads.
func (e *Engine) ReplacePolicies(policies map[string]ratelimit.Policy) error {
	return e.limits.Replace(policies)
}

// ReplaceRules atomically swaps the behavior rule set.
func (e *Engine) ReplaceRules(ruleSet []rules.Rule) error {
	return e.rules.Replace(ruleSet)
}

// CleanupOnce prunes expired rate-limit hits and stale history.
func (e *Engine) CleanupOnce() {
	removedHits := e.limiter.Cleanup()
	removedUsers := e.history.Cleanup()
	metrics.RateLimitTrackedPairs.Set(float64(e.limiter.Pairs()))

	if removedHits > 0 || removedUsers > 0 {
		logging.Debug().
			Int("expired_hits", removedHits).
			Int("idle_identities", removedUsers).
			Msg("Maintenance sweep")
	}
}

// DecayOnce lowers all risk scores by the configured amount and refreshes
// the profile gauges.
func (e *Engine) DecayOnce(ctx context.Context) {
	if _, err := e.risk.Decay(ctx, e.decayAmount); err != nil {
		logging.Error().Err(err).Msg("Risk decay failed")
		return
	}
	metrics.RiskScoreDecayRuns.Inc()

	profiles, err := e.risk.Profiles(ctx)
	if err != nil {
		return
	}
	counts := map[risk.TrustLevel]int{}
	for _, profile := range profiles {
		counts[profile.TrustLevel]++
	}
	for _, level := range []risk.TrustLevel{risk.TrustTrusted, risk.TrustNormal, risk.TrustSuspicious, risk.TrustBanned} {
		metrics.TrackedProfiles.WithLabelValues(string(level)).Set(float64(counts[level]))
	}
}

// Run drives the maintenance loops until the context is canceled. It is
// shaped to run under a supervisor.
func (e *Engine) Run(ctx context.Context) error {
	cleanup := time.NewTicker(e.cleanupInterval)
	defer cleanup.Stop()
	decay := time.NewTicker(e.decayInterval)
	defer decay.Stop()

	logging.Info().
		Dur("cleanup_interval", e.cleanupInterval).
		Dur("decay_interval", e.decayInterval).
		Msg("Engine maintenance started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cleanup.C:
			e.CleanupOnce()
		case <-decay.C:
			e.DecayOnce(ctx)
		}
	}
}
