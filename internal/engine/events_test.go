// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/wardenhq/warden/internal/rules"
)

func storedEvent(id, userID string, severity rules.EventSeverity) rules.SecurityEvent {
	return rules.SecurityEvent{
		ID:       id,
		RuleID:   "rule-1",
		Severity: severity,
		UserID:   userID,
	}
}

func TestEventStoreAddGetResolve(t *testing.T) {
	store := NewEventStore(10)

	store.Add(storedEvent("e1", "u1", rules.EventSeverityLow))

	got, err := store.Get("e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Resolved {
		t.Error("new events start unresolved")
	}

	if err := store.Resolve("e1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, err = store.Get("e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Resolved {
		t.Error("Resolve should stick")
	}

	if _, err := store.Get("missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Get(missing) = %v, want ErrEventNotFound", err)
	}
	if err := store.Resolve("missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Resolve(missing) = %v, want ErrEventNotFound", err)
	}
}

func TestEventStoreEvictsOldest(t *testing.T) {
	store := NewEventStore(3)

	for i := 0; i < 5; i++ {
		store.Add(storedEvent(fmt.Sprintf("e%d", i), "u1", rules.EventSeverityLow))
	}

	if store.Len() != 3 {
		t.Fatalf("Len = %d, want 3", store.Len())
	}
	if _, err := store.Get("e0"); !errors.Is(err, ErrEventNotFound) {
		t.Error("oldest event should be evicted")
	}
	if _, err := store.Get("e4"); err != nil {
		t.Errorf("newest event should survive: %v", err)
	}
}

func TestEventStoreSurvivesRepeatedWraparound(t *testing.T) {
	store := NewEventStore(3)

	for i := 0; i < 10; i++ {
		store.Add(storedEvent(fmt.Sprintf("e%d", i), "u1", rules.EventSeverityLow))
	}

	if store.Len() != 3 {
		t.Fatalf("Len = %d, want 3", store.Len())
	}

	got := store.List(EventFilter{})
	if len(got) != 3 {
		t.Fatalf("List = %d events, want 3", len(got))
	}
	for i, want := range []string{"e9", "e8", "e7"} {
		if got[i].ID != want {
			t.Errorf("List[%d] = %s, want %s", i, got[i].ID, want)
		}
	}

	// Lookups and mutation still address the right slots after the ring
	// has wrapped several times.
	if err := store.Resolve("e8"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	event, err := store.Get("e8")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !event.Resolved {
		t.Error("Resolve should stick after wraparound")
	}
	if _, err := store.Get("e6"); !errors.Is(err, ErrEventNotFound) {
		t.Error("evicted IDs must not resolve to reused slots")
	}
}

func TestEventStoreListFilters(t *testing.T) {
	store := NewEventStore(10)
	store.Add(storedEvent("e1", "u1", rules.EventSeverityLow))
	store.Add(storedEvent("e2", "u2", rules.EventSeverityHigh))
	store.Add(storedEvent("e3", "u1", rules.EventSeverityHigh))
	if err := store.Resolve("e1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got := store.List(EventFilter{}); len(got) != 3 {
		t.Errorf("unfiltered = %d events, want 3", len(got))
	}

	got := store.List(EventFilter{UserID: "u1"})
	if len(got) != 2 {
		t.Fatalf("user filter = %d events, want 2", len(got))
	}
	// Newest first.
	if got[0].ID != "e3" || got[1].ID != "e1" {
		t.Errorf("order = [%s, %s], want [e3, e1]", got[0].ID, got[1].ID)
	}

	if got := store.List(EventFilter{Severity: rules.EventSeverityHigh}); len(got) != 2 {
		t.Errorf("severity filter = %d events, want 2", len(got))
	}
	if got := store.List(EventFilter{Unresolved: true}); len(got) != 2 {
		t.Errorf("unresolved filter = %d events, want 2", len(got))
	}
	if got := store.List(EventFilter{Limit: 1}); len(got) != 1 || got[0].ID != "e3" {
		t.Errorf("limit filter = %+v, want just e3", got)
	}
}
