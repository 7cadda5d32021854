// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package rules

import (
	"sync"
	"time"
)

// ActionRecord is one entry in a player's rolling action history.
type ActionRecord struct {
	Action    string
	Timestamp time.Time
	Position  *Position
}

// History keeps a short rolling log of recent actions per identity,
// feeding the rate_limit and pattern rule families, plus the last known
// position per identity for movement validation.
//
// Entries are bounded both by count (maxPerUser, ring-buffer style: oldest
// dropped first) and by age (maxAge, purged lazily on read and eagerly by
// Cleanup).
type History struct {
	mu         sync.RWMutex
	records    map[string][]ActionRecord
	lastMove   map[string]ActionRecord
	maxPerUser int
	maxAge     time.Duration
	clock      func() time.Time
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithHistoryClock overrides the history's time source.
func WithHistoryClock(clock func() time.Time) HistoryOption {
	return func(h *History) {
		h.clock = clock
	}
}

// NewHistory creates an action history. maxPerUser bounds entries per
// identity; maxAge bounds how far back any rule window can reach.
func NewHistory(maxPerUser int, maxAge time.Duration, opts ...HistoryOption) *History {
	if maxPerUser <= 0 {
		maxPerUser = 256
	}
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}

	h := &History{
		records:    make(map[string][]ActionRecord),
		lastMove:   make(map[string]ActionRecord),
		maxPerUser: maxPerUser,
		maxAge:     maxAge,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Record appends an action to the identity's history. Records carrying a
// position also become the identity's last known movement sample.
func (h *History) Record(userID string, rec ActionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.pruneLocked(userID)
	entries = append(entries, rec)
	if len(entries) > h.maxPerUser {
		entries = entries[len(entries)-h.maxPerUser:]
	}
	h.records[userID] = entries

	if rec.Position != nil {
		h.lastMove[userID] = rec
	}
}

// CountMatching returns how many of the identity's records within the
// trailing window satisfy match.
func (h *History) CountMatching(userID string, window time.Duration, match func(ActionRecord) bool) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := h.clock().Add(-window)
	count := 0
	for _, rec := range h.records[userID] {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		if match(rec) {
			count++
		}
	}
	return count
}

// LastMovement returns the identity's most recent position-bearing record.
func (h *History) LastMovement(userID string) (ActionRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.lastMove[userID]
	return rec, ok
}

// Cleanup purges aged-out records for all identities and drops empty
// entries. Returns the number of identities removed.
func (h *History) Cleanup() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for userID := range h.records {
		if len(h.pruneLocked(userID)) == 0 {
			delete(h.records, userID)
			removed++
		}
	}
	return removed
}

// Users returns the number of identities with live history.
func (h *History) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// pruneLocked drops aged-out records for one identity and returns the
// surviving slice. Caller holds the write lock.
func (h *History) pruneLocked(userID string) []ActionRecord {
	entries := h.records[userID]
	cutoff := h.clock().Add(-h.maxAge)
	for i, rec := range entries {
		if !rec.Timestamp.Before(cutoff) {
			entries = entries[i:]
			h.records[userID] = entries
			return entries
		}
	}
	delete(h.records, userID)
	return nil
}
