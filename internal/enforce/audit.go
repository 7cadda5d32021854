// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package enforce

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologAudit writes audit entries to the structured log with a fixed
// component tag so enforcement records are greppable in aggregate.
type ZerologAudit struct {
	logger zerolog.Logger
}

// NewZerologAudit creates a log-backed audit sink.
func NewZerologAudit(logger zerolog.Logger) *ZerologAudit {
	return &ZerologAudit{logger: logger.With().Str("component", "audit").Logger()}
}

// Record writes one enforcement audit entry.
func (a *ZerologAudit) Record(_ context.Context, entry AuditEntry) {
	a.logger.Info().
		Str("event_id", entry.EventID).
		Str("rule_id", entry.RuleID).
		Str("user_id", entry.UserID).
		Str("severity", string(entry.Severity)).
		Str("action", entry.Action).
		Str("description", entry.Description).
		Time("at", entry.Timestamp).
		Msg("Enforcement action")
}
