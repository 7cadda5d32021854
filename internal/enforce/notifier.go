// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package enforce

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wardenhq/warden/internal/rules"
)

// Notifier delivers a security event to an external channel.
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, event rules.SecurityEvent) error
}

// LogNotifier writes events to the structured log. Useful as a default
// channel and in development setups without a webhook endpoint.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string  { return "log" }
func (n *LogNotifier) Enabled() bool { return true }

// Send writes the event at a level matching its severity.
func (n *LogNotifier) Send(_ context.Context, event rules.SecurityEvent) error {
	evt := n.logger.Info()
	switch event.Severity {
	case rules.EventSeverityHigh:
		evt = n.logger.Warn()
	case rules.EventSeverityCritical:
		evt = n.logger.Error()
	}
	evt.
		Str("event_id", event.ID).
		Str("rule_id", event.RuleID).
		Str("user_id", event.UserID).
		Str("severity", string(event.Severity)).
		Str("description", event.Description).
		Msg("Security event")
	return nil
}
