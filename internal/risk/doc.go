// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package risk maintains the per-identity security profile: risk score,
// violation history, enforcement counters, and trust level.
//
// Profiles are created lazily on the first observed violation and are
// never deleted while the identity has recorded violations, preserving the
// audit trail. The risk score is a bounded accumulator (0-100) fed by
// severity-weighted increments; the weights are deployment configuration,
// not constants, and must be monotonic in severity.
//
// Trust level is always recomputed from the profile's risk score, ban
// state, and promotion flag; callers never set it directly. The banned
// level is sticky: only an explicit external unban leaves it, and score
// decay alone never does. Promotion to trusted is likewise external only —
// absence of violations earns normal, not trusted.
//
// The Store interface is the optional persistence boundary (read-one /
// write-one by user ID). MemoryStore is the default; BadgerStore survives
// restarts.
package risk
