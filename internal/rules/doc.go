// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package rules implements the behavioral rule evaluator: the stage that
// turns accepted player actions into security events.
//
// A Rule is a closed tagged union. Its Type selects which condition payload
// applies (movement physics, ad-hoc rate checks, or pattern matching over
// recent action history) and exactly one payload must be populated; this is
// enforced at registration time, never guessed at evaluation time.
//
// The Evaluator is deterministic and side-effect-free: given the same
// event, rule set, and action history it always produces the same security
// events, in rule registration order. Recording the evaluated action into
// the history is the caller's job, performed after evaluation so that
// "previous state" always means state before the current event.
//
// Malformed telemetry (out-of-order movement timestamps) is never treated
// as a violation: the affected rule is skipped and the stale condition is
// surfaced to the caller.
package rules
