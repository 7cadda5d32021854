// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package enforce

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wardenhq/warden/internal/rules"
)

type mockSessions struct {
	mu          sync.Mutex
	disconnects []string
	err         error
}

func (m *mockSessions) Disconnect(_ context.Context, userID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.disconnects = append(m.disconnects, userID)
	return nil
}

type mockAccounts struct {
	mu   sync.Mutex
	bans []string
	err  error
}

func (m *mockAccounts) Ban(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bans = append(m.bans, userID)
	return nil
}

type mockAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *mockAudit) Record(_ context.Context, entry AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type mockNotifier struct {
	mu      sync.Mutex
	name    string
	enabled bool
	err     error
	sent    []rules.SecurityEvent
}

func (m *mockNotifier) Name() string  { return m.name }
func (m *mockNotifier) Enabled() bool { return m.enabled }

func (m *mockNotifier) Send(_ context.Context, event rules.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, event)
	return nil
}

func testEvent(severity rules.EventSeverity) rules.SecurityEvent {
	return rules.SecurityEvent{
		ID:          "evt-1",
		RuleID:      "rule-1",
		Severity:    severity,
		UserID:      "u1",
		Timestamp:   time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Description: "test violation",
	}
}

func testRule(severity rules.RuleSeverity, actions rules.RuleActions) rules.Rule {
	return rules.Rule{
		ID:       "rule-1",
		Type:     rules.RuleTypeMovement,
		Enabled:  true,
		Severity: severity,
		Actions:  actions,
	}
}

func TestDispatchLogOnly(t *testing.T) {
	audit := &mockAudit{}
	d := NewDispatcher(WithAuditLogger(audit))

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityMedium),
		testRule(rules.SeverityWarning, rules.RuleActions{Log: true}))

	if !out.Audited {
		t.Error("expected audit entry")
	}
	if got := audit.actions(); len(got) != 1 || got[0] != "log" {
		t.Errorf("audit actions = %v, want [log]", got)
	}
	if out.Disconnected || out.Banned {
		t.Error("log-only rule must not enforce")
	}
}

func TestDispatchAlertFanout(t *testing.T) {
	ok := &mockNotifier{name: "ok", enabled: true}
	broken := &mockNotifier{name: "broken", enabled: true, err: errors.New("endpoint down")}
	off := &mockNotifier{name: "off", enabled: false}
	d := NewDispatcher(WithNotifiers(ok, broken, off))

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityHigh),
		testRule(rules.SeverityKick, rules.RuleActions{Alert: true}))

	if out.Alerted != 1 {
		t.Errorf("Alerted = %d, want 1", out.Alerted)
	}
	if out.Failures != 1 {
		t.Errorf("Failures = %d, want 1 (broken notifier)", out.Failures)
	}
	if len(off.sent) != 0 {
		t.Error("disabled notifier must not receive events")
	}
	if len(ok.sent) != 1 {
		t.Errorf("ok notifier received %d events, want 1", len(ok.sent))
	}
}

func TestDispatchAutoKick(t *testing.T) {
	sessions := &mockSessions{}
	audit := &mockAudit{}
	d := NewDispatcher(WithSessionManager(sessions), WithAuditLogger(audit))

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityHigh),
		testRule(rules.SeverityKick, rules.RuleActions{AutoAction: true}))

	if !out.Disconnected {
		t.Error("kick tier should disconnect")
	}
	if out.Banned {
		t.Error("kick tier must not ban")
	}
	if len(sessions.disconnects) != 1 || sessions.disconnects[0] != "u1" {
		t.Errorf("disconnects = %v, want [u1]", sessions.disconnects)
	}
}

func TestDispatchAutoBanThenDisconnect(t *testing.T) {
	sessions := &mockSessions{}
	accounts := &mockAccounts{}
	d := NewDispatcher(WithSessionManager(sessions), WithAccountActions(accounts))

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityCritical),
		testRule(rules.SeverityBan, rules.RuleActions{AutoAction: true}))

	if !out.Banned || !out.Disconnected {
		t.Errorf("outcome = banned:%v disconnected:%v, want both", out.Banned, out.Disconnected)
	}
	if len(accounts.bans) != 1 {
		t.Errorf("bans = %v, want [u1]", accounts.bans)
	}
}

func TestDispatchBanFailureStillDisconnects(t *testing.T) {
	sessions := &mockSessions{}
	accounts := &mockAccounts{err: errors.New("store down")}
	d := NewDispatcher(WithSessionManager(sessions), WithAccountActions(accounts))

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityCritical),
		testRule(rules.SeverityBan, rules.RuleActions{AutoAction: true}))

	if out.Banned {
		t.Error("failed ban must not report banned")
	}
	if !out.Disconnected {
		t.Error("disconnect should still run after a failed ban")
	}
	if out.Failures != 1 {
		t.Errorf("Failures = %d, want 1", out.Failures)
	}
}

func TestDispatchInvestigateFlags(t *testing.T) {
	audit := &mockAudit{}
	d := NewDispatcher(WithAuditLogger(audit))

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityLow),
		testRule(rules.SeverityInvestigate, rules.RuleActions{AutoAction: true}))

	if !out.Flagged {
		t.Error("investigate tier should flag for review")
	}
	if out.Disconnected || out.Banned {
		t.Error("investigate tier must not enforce")
	}
	if got := audit.actions(); len(got) != 1 || got[0] != "flag" {
		t.Errorf("audit actions = %v, want [flag]", got)
	}
}

func TestDispatchWithNoCollaborators(t *testing.T) {
	// Everything nil: dispatch must be a safe no-op, not a panic.
	d := NewDispatcher()

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityCritical),
		testRule(rules.SeverityBan, rules.RuleActions{
			Log: true, Alert: true, AutoAction: true, NotifyAdmins: true,
		}))

	if out.Banned || out.Disconnected || out.Alerted != 0 {
		t.Errorf("unexpected effects with no collaborators: %+v", out)
	}
}

func TestDispatchAdminNotification(t *testing.T) {
	admin := &mockNotifier{name: "admin", enabled: true}
	alert := &mockNotifier{name: "alert", enabled: true}
	d := NewDispatcher(WithNotifiers(alert), WithAdminNotifiers(admin))

	out := d.Dispatch(context.Background(), testEvent(rules.EventSeverityHigh),
		testRule(rules.SeverityKick, rules.RuleActions{NotifyAdmins: true}))

	if out.AdminsPinged != 1 {
		t.Errorf("AdminsPinged = %d, want 1", out.AdminsPinged)
	}
	if len(alert.sent) != 0 {
		t.Error("alert channel must not fire without the Alert action")
	}
}
