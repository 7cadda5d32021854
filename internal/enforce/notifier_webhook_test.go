// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package enforce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/wardenhq/warden/internal/rules"
)

func TestWebhookNotifierDelivers(t *testing.T) {
	var received atomic.Int32
	var payload WebhookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		if got := r.Header.Get("X-Auth"); got != "secret" {
			t.Errorf("X-Auth = %s, want secret", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		URL:           srv.URL,
		Enabled:       true,
		Headers:       map[string]string{"X-Auth": "secret"},
		RatePerSecond: 100,
		Burst:         10,
	})

	event := testEvent(rules.EventSeverityHigh)
	if err := n.Send(context.Background(), event); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received.Load() != 1 {
		t.Fatalf("received %d requests, want 1", received.Load())
	}
	if payload.Event.ID != event.ID {
		t.Errorf("payload event = %s, want %s", payload.Event.ID, event.ID)
	}
	if payload.Source != "warden" || payload.EventType != "security_event" {
		t.Errorf("payload envelope = %s/%s", payload.Source, payload.EventType)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		URL:           srv.URL,
		Enabled:       true,
		RatePerSecond: 100,
		Burst:         10,
	})

	if err := n.Send(context.Background(), testEvent(rules.EventSeverityLow)); err == nil {
		t.Error("expected error for 5xx response")
	}
}

func TestWebhookNotifierDisabled(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		received.Add(1)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Enabled: false})

	if n.Enabled() {
		t.Error("Enabled() = true for disabled notifier")
	}
	if err := n.Send(context.Background(), testEvent(rules.EventSeverityLow)); err != nil {
		t.Fatalf("Send on disabled notifier: %v", err)
	}
	if received.Load() != 0 {
		t.Error("disabled notifier must not deliver")
	}

	n.SetEnabled(true)
	if !n.Enabled() {
		t.Error("Enabled() = false after SetEnabled(true)")
	}
}

func TestWebhookNotifierEmptyURL(t *testing.T) {
	n := NewWebhookNotifier(WebhookConfig{Enabled: true})
	if n.Enabled() {
		t.Error("notifier without a URL must report disabled")
	}
	if err := n.Send(context.Background(), testEvent(rules.EventSeverityLow)); err != nil {
		t.Fatalf("Send without URL should no-op, got %v", err)
	}
}

func TestWebhookNotifierBreakerOpensOnRepeatedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		URL:           srv.URL,
		Enabled:       true,
		RatePerSecond: 1000,
		Burst:         1000,
	})

	// Drive enough failures to trip the breaker, then expect fast
	// rejections without reaching the endpoint.
	for i := 0; i < 10; i++ {
		//nolint:errcheck
		n.Send(context.Background(), testEvent(rules.EventSeverityLow))
	}

	err := n.Send(context.Background(), testEvent(rules.EventSeverityLow))
	if err == nil {
		t.Fatal("expected rejection after repeated failures")
	}
}
