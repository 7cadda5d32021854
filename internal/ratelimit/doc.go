// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package ratelimit implements the sliding-window rate limiter that gates
// every inbound action before semantic validation.
//
// The package is built from three pieces:
//
//   - a hit log: per (limit key, identifier) ordered timestamps of accepted
//     hits still inside the policy window
//   - a Registry: limit key -> Policy (max hits, window duration)
//   - a Limiter composing the two: IsAllowed, Remaining, ResetTime, Cleanup
//
// The limiter is fail-open: a key with no registered policy is always
// allowed. An unrecognized key is a configuration gap, not a security
// boundary.
//
// Rejected calls never consume quota: IsAllowed records a hit only when the
// call is accepted. Stale hits are purged lazily on every read and eagerly
// by Cleanup, which is needed only for memory bounding, never for
// correctness.
package ratelimit
