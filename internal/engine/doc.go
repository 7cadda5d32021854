// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package engine wires the check pipeline: an incoming action runs
// through the ban gate, the sliding-window rate limiter, and the rule
// evaluator, then fired violations update risk profiles and fan out to
// enforcement.
//
// The pipeline order matters. The limiter consumes quota only for actions
// that reach it (banned identities never drain quota), rule evaluation
// sees history as it was before the current action, and the action is
// recorded into history only after evaluation so "previous state"
// semantics hold for the next check.
//
// A Decision reports everything a caller needs in one value: whether the
// action may proceed, why not, the remaining quota, and any security
// events the action produced. Enforcement side effects are dispatched
// before the decision returns but their failures never change it.
package engine
