// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

/*
Package metrics provides Prometheus metrics collection and export.

Metrics are registered at package init via promauto and exposed at the
/metrics endpoint in Prometheus text format:

	curl http://localhost:8087/metrics

# Available Metrics

Pipeline:
  - warden_action_checks_total: Action checks (counter)
    Labels: action, decision (allowed, rate_limited, violation, stale, banned, rejected)
  - warden_action_check_duration_seconds: Full-pipeline check latency (histogram)
    Labels: action

Rate limiting:
  - warden_rate_limit_rejections_total: Rejected requests (counter)
    Labels: limit_key
  - warden_rate_limit_tracked_pairs: Live (limit, identifier) pairs (gauge)

Rule evaluation:
  - warden_rule_violations_total: Violations (counter)
    Labels: rule_id, severity
  - warden_stale_updates_total: Movement samples skipped as stale (counter)

Enforcement:
  - warden_enforcement_actions_total: Enforcement outcomes (counter)
    Labels: action (alert, disconnect, ban, flag), result (ok, failed)

Risk:
  - warden_profiles: Persisted profiles (gauge)
    Labels: trust_level
  - warden_risk_decay_runs_total: Completed decay sweeps (counter)

HTTP API:
  - warden_api_requests_total: API requests (counter)
    Labels: method, endpoint, status_code
  - warden_api_request_duration_seconds: API latency (histogram)
    Labels: method, endpoint

# Cardinality Management

Labels stay bounded: limit keys and rule IDs come from configuration, not
request data, and user IDs are never used as label values.

Example PromQL:

	# Rejection rate per limit key
	rate(warden_rate_limit_rejections_total[5m])

	# p95 check latency
	histogram_quantile(0.95, rate(warden_action_check_duration_seconds_bucket[5m]))
*/
package metrics
