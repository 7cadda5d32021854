// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package enforce

import (
	"context"
	"time"

	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/rules"
)

// SessionManager removes a live session. Implementations belong to the
// embedding application; the dispatcher only asks for disconnects.
type SessionManager interface {
	Disconnect(ctx context.Context, userID, reason string) error
}

// AccountActions applies account-level enforcement.
type AccountActions interface {
	Ban(ctx context.Context, userID string) error
}

// AuditLogger records enforcement decisions for later review.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry is one enforcement audit record.
type AuditEntry struct {
	EventID     string              `json:"event_id"`
	RuleID      string              `json:"rule_id"`
	UserID      string              `json:"user_id"`
	Severity    rules.EventSeverity `json:"severity"`
	Action      string              `json:"action"`
	Description string              `json:"description"`
	Timestamp   time.Time           `json:"timestamp"`
}

// Outcome summarizes what one dispatch actually did. Failed effects are
// logged, counted in Failures, and otherwise dropped.
type Outcome struct {
	Audited      bool
	Alerted      int
	AdminsPinged int
	Disconnected bool
	Banned       bool
	Flagged      bool
	Failures     int
}

// Dispatcher fans one security event out to the actions its rule asks
// for. All collaborators are optional; a nil collaborator turns the
// corresponding action into a no-op with a debug log.
type Dispatcher struct {
	sessions  SessionManager
	accounts  AccountActions
	audit     AuditLogger
	notifiers []Notifier
	admins    []Notifier
	clock     func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSessionManager wires the session disconnect collaborator.
func WithSessionManager(s SessionManager) Option {
	return func(d *Dispatcher) { d.sessions = s }
}

// WithAccountActions wires the account enforcement collaborator.
func WithAccountActions(a AccountActions) Option {
	return func(d *Dispatcher) { d.accounts = a }
}

// WithAuditLogger wires the audit sink.
func WithAuditLogger(a AuditLogger) Option {
	return func(d *Dispatcher) { d.audit = a }
}

// WithNotifiers wires the alert notifiers.
func WithNotifiers(n ...Notifier) Option {
	return func(d *Dispatcher) { d.notifiers = append(d.notifiers, n...) }
}

// WithAdminNotifiers wires the admin notification channel.
func WithAdminNotifiers(n ...Notifier) Option {
	return func(d *Dispatcher) { d.admins = append(d.admins, n...) }
}

// WithDispatchClock injects a time source.
func WithDispatchClock(clock func() time.Time) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

// NewDispatcher creates an enforcement dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{clock: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes the rule's configured actions for the event. Errors
// from collaborators never propagate; the returned Outcome reports what
// happened for metrics and tests.
func (d *Dispatcher) Dispatch(ctx context.Context, event rules.SecurityEvent, rule rules.Rule) Outcome {
	var out Outcome

	if rule.Actions.Log {
		d.recordAudit(ctx, event, "log")
		out.Audited = true
	}

	if rule.Actions.Alert {
		for _, notifier := range d.notifiers {
			if !notifier.Enabled() {
				continue
			}
			if err := notifier.Send(ctx, event); err != nil {
				out.Failures++
				logging.Warn().Err(err).
					Str("notifier", notifier.Name()).
					Str("event_id", event.ID).
					Msg("Alert delivery failed")
				continue
			}
			out.Alerted++
		}
	}

	if rule.Actions.NotifyAdmins {
		for _, notifier := range d.admins {
			if !notifier.Enabled() {
				continue
			}
			if err := notifier.Send(ctx, event); err != nil {
				out.Failures++
				logging.Warn().Err(err).
					Str("notifier", notifier.Name()).
					Str("event_id", event.ID).
					Msg("Admin notification failed")
				continue
			}
			out.AdminsPinged++
		}
	}

	if rule.Actions.AutoAction {
		d.autoAction(ctx, event, rule, &out)
	}

	return out
}

// autoAction maps the rule's enforcement tier to a concrete effect:
// warning only audits, kick disconnects, ban bans then disconnects, and
// investigate flags the event for manual review.
func (d *Dispatcher) autoAction(ctx context.Context, event rules.SecurityEvent, rule rules.Rule, out *Outcome) {
	switch rule.Severity {
	case rules.SeverityWarning:
		d.recordAudit(ctx, event, "warn")
		out.Audited = true

	case rules.SeverityKick:
		out.Disconnected = d.disconnect(ctx, event, out)

	case rules.SeverityBan:
		if d.accounts == nil {
			logging.Debug().Str("user_id", event.UserID).Msg("No account actions wired, skipping ban")
		} else if err := d.accounts.Ban(ctx, event.UserID); err != nil {
			out.Failures++
			logging.Error().Err(err).Str("user_id", event.UserID).Msg("Ban failed")
		} else {
			out.Banned = true
			d.recordAudit(ctx, event, "ban")
		}
		out.Disconnected = d.disconnect(ctx, event, out)

	case rules.SeverityInvestigate:
		d.recordAudit(ctx, event, "flag")
		out.Flagged = true
	}
}

func (d *Dispatcher) disconnect(ctx context.Context, event rules.SecurityEvent, out *Outcome) bool {
	if d.sessions == nil {
		logging.Debug().Str("user_id", event.UserID).Msg("No session manager wired, skipping disconnect")
		return false
	}
	if err := d.sessions.Disconnect(ctx, event.UserID, event.Description); err != nil {
		out.Failures++
		logging.Error().Err(err).Str("user_id", event.UserID).Msg("Disconnect failed")
		return false
	}
	d.recordAudit(ctx, event, "disconnect")
	return true
}

func (d *Dispatcher) recordAudit(ctx context.Context, event rules.SecurityEvent, action string) {
	if d.audit == nil {
		return
	}
	d.audit.Record(ctx, AuditEntry{
		EventID:     event.ID,
		RuleID:      event.RuleID,
		UserID:      event.UserID,
		Severity:    event.Severity,
		Action:      action,
		Description: event.Description,
		Timestamp:   d.clock(),
	})
}
