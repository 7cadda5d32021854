// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the action pipeline:
// - Action check throughput and latency
// - Rate limit rejections per limit key
// - Rule violations by rule and severity
// - Enforcement outcomes
// - Profile population

var (
	// Pipeline Metrics
	ActionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_action_checks_total",
			Help: "Total number of action checks by decision",
		},
		[]string{"action", "decision"}, // decision: allowed, rate_limited, violation, stale, banned, rejected
	)

	ActionCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_action_check_duration_seconds",
			Help:    "Duration of one action check through the full pipeline",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"action"},
	)

	// Rate Limiting Metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"limit_key"},
	)

	RateLimitTrackedPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_rate_limit_tracked_pairs",
			Help: "Current number of (limit, identifier) pairs holding hits",
		},
	)

	// Rule Evaluation Metrics
	RuleViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_rule_violations_total",
			Help: "Total number of rule violations by rule and severity",
		},
		[]string{"rule_id", "severity"},
	)

	StaleUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_stale_updates_total",
			Help: "Total number of movement samples skipped as stale",
		},
	)

	// Enforcement Metrics
	EnforcementActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_enforcement_actions_total",
			Help: "Total number of enforcement actions by kind and result",
		},
		[]string{"action", "result"}, // action: alert, disconnect, ban, flag; result: ok, failed
	)

	// Risk Profile Metrics
	TrackedProfiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warden_profiles",
			Help: "Current number of persisted profiles by trust level",
		},
		[]string{"trust_level"},
	)

	RiskScoreDecayRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_risk_decay_runs_total",
			Help: "Total number of completed risk score decay sweeps",
		},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEnforcement records one enforcement action outcome.
func RecordEnforcement(action string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	EnforcementActions.WithLabelValues(action, result).Inc()
}
