// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Unlimited is returned by Remaining for keys with no registered policy.
const Unlimited = math.MaxInt

// Clock returns the current time. Injectable so tests can drive a
// simulated clock.
type Clock func() time.Time

// pairKey identifies one hit log: a limit key plus a caller identity.
type pairKey struct {
	limit string
	id    string
}

// prune returns the suffix of hits at or after cutoff. Hits are
// insertion-ordered, so a single scan for the first valid entry suffices.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	for i, ts := range hits {
		if !ts.Before(cutoff) {
			return hits[i:]
		}
	}
	return nil
}

// Limiter is the sliding-window rate limiter. It owns the hit logs; no
// other component mutates them.
//
// A single mutex serializes all operations. The check-then-record sequence
// inside IsAllowed must be atomic per (key, identifier) pair, and
// individual operations are O(window size) over small windows, so a coarse
// lock is sufficient at the expected per-identity event rates.
type Limiter struct {
	mu       sync.Mutex
	registry *Registry
	logs     map[pairKey][]time.Time
	clock    Clock
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

// NewLimiter creates a limiter backed by the given policy registry.
func NewLimiter(registry *Registry, opts ...Option) *Limiter {
	l := &Limiter{
		registry: registry,
		logs:     make(map[pairKey][]time.Time),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsAllowed reports whether a hit for (key, identifier) is within policy
// and, when it is, records it. Rejected calls do not consume quota.
// Keys with no registered policy are always allowed.
func (l *Limiter) IsAllowed(key, identifier string) bool {
	policy, ok := l.registry.GetLimit(key)
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	pair := pairKey{limit: key, id: identifier}
	hits := prune(l.logs[pair], now.Add(-policy.Window))

	if len(hits) >= policy.MaxHits {
		l.logs[pair] = hits
		return false
	}

	l.logs[pair] = append(hits, now)
	return true
}

// Remaining returns how many hits (key, identifier) has left in the
// current window, or Unlimited when no policy is registered for the key.
func (l *Limiter) Remaining(key, identifier string) int {
	policy, ok := l.registry.GetLimit(key)
	if !ok {
		return Unlimited
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pair := pairKey{limit: key, id: identifier}
	hits := prune(l.logs[pair], l.clock().Add(-policy.Window))
	l.logs[pair] = hits

	if remaining := policy.MaxHits - len(hits); remaining > 0 {
		return remaining
	}
	return 0
}

// ResetTime returns the instant the oldest counted hit falls out of the
// window, freeing one slot. This is the earliest possible next-allowed
// time, not the time all slots clear. The zero time is returned when no
// hits are recorded for the pair.
func (l *Limiter) ResetTime(key, identifier string) time.Time {
	policy, ok := l.registry.GetLimit(key)
	if !ok {
		return time.Time{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pair := pairKey{limit: key, id: identifier}
	hits := prune(l.logs[pair], l.clock().Add(-policy.Window))
	l.logs[pair] = hits

	if len(hits) == 0 {
		return time.Time{}
	}
	return hits[0].Add(policy.Window)
}

// Cleanup purges stale hits from every log and drops empty logs entirely,
// bounding memory. Intended for a periodic timer; IsAllowed never depends
// on it for correctness. Returns the number of pairs removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	removed := 0
	for pair, hits := range l.logs {
		policy, ok := l.registry.GetLimit(pair.limit)
		if !ok {
			// Policy was removed or never existed; the log can't grow
			// because unknown keys are never recorded, so drop it.
			delete(l.logs, pair)
			removed++
			continue
		}

		pruned := prune(hits, now.Add(-policy.Window))
		if len(pruned) == 0 {
			delete(l.logs, pair)
			removed++
			continue
		}
		l.logs[pair] = pruned
	}
	return removed
}

// Pairs returns the number of (key, identifier) logs currently held.
func (l *Limiter) Pairs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.logs)
}
