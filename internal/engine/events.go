// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package engine

import (
	"errors"
	"sync"

	"github.com/wardenhq/warden/internal/rules"
)

// ErrEventNotFound is returned for unknown event IDs.
var ErrEventNotFound = errors.New("event not found")

// EventFilter narrows List results. Zero values match everything.
type EventFilter struct {
	UserID     string
	RuleID     string
	Severity   rules.EventSeverity
	Unresolved bool
	Limit      int
}

// EventStore keeps recent security events in memory, bounded to a fixed
// capacity with oldest-first eviction. The backing array is a ring so
// steady-state insertion stays O(1). Events are the review trail for
// operators; the authoritative per-identity record lives in risk
// profiles.
type EventStore struct {
	mu    sync.RWMutex
	ring  []rules.SecurityEvent
	index map[string]int // event ID -> ring slot

	// head is the slot the next Add writes to; size counts stored
	// events, at most len(ring).
	head int
	size int
}

// NewEventStore creates a store bounded to capacity events.
func NewEventStore(capacity int) *EventStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &EventStore{
		ring:  make([]rules.SecurityEvent, capacity),
		index: make(map[string]int, capacity),
	}
}

// Add appends an event, evicting the oldest when full.
func (s *EventStore) Add(event rules.SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size == len(s.ring) {
		delete(s.index, s.ring[s.head].ID)
	} else {
		s.size++
	}
	s.ring[s.head] = event
	s.index[event.ID] = s.head
	s.head = (s.head + 1) % len(s.ring)
}

// Get returns one event by ID.
func (s *EventStore) Get(id string) (rules.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.index[id]
	if !ok {
		return rules.SecurityEvent{}, ErrEventNotFound
	}
	return s.ring[slot], nil
}

// List returns matching events, newest first.
func (s *EventStore) List(filter EventFilter) []rules.SecurityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	capacity := len(s.ring)
	var out []rules.SecurityEvent
	for k := 0; k < s.size; k++ {
		event := s.ring[(s.head-1-k+2*capacity)%capacity]
		if filter.UserID != "" && event.UserID != filter.UserID {
			continue
		}
		if filter.RuleID != "" && event.RuleID != filter.RuleID {
			continue
		}
		if filter.Severity != "" && event.Severity != filter.Severity {
			continue
		}
		if filter.Unresolved && event.Resolved {
			continue
		}
		out = append(out, event)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Resolve marks an event handled.
func (s *EventStore) Resolve(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.index[id]
	if !ok {
		return ErrEventNotFound
	}
	s.ring[slot].Resolved = true
	return nil
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
