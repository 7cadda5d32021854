// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package enforce executes the side effects a fired rule asks for:
// audit logging, alert delivery, admin notification, and automatic
// enforcement (kick, ban).
//
// Dispatch is fire-and-forget with respect to the caller's decision:
// downstream failures (webhook down, session already gone) are logged and
// counted but never propagate back into the evaluation path, so a broken
// notifier cannot block or alter enforcement decisions.
//
// External effects go through narrow collaborator interfaces
// (SessionManager, AccountActions, Notifier, AuditLogger); the dispatcher
// itself holds no transport or persistence code. The webhook notifier
// wraps delivery in a circuit breaker and a token-bucket throttle so a
// flapping endpoint is shed instead of hammered.
package enforce
