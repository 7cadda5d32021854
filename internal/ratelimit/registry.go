// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidPolicy is returned when a policy with a non-positive max hit
// count or window duration is registered.
var ErrInvalidPolicy = errors.New("max hits and window must be positive")

// Policy is a sliding-window limit: at most MaxHits accepted hits within
// any trailing Window. Policies are immutable once registered; overriding a
// key replaces the policy but does not touch already-recorded hits.
type Policy struct {
	MaxHits int           `json:"max_hits"`
	Window  time.Duration `json:"window"`
}

// Validate rejects non-positive limits. Invalid policies fail at
// registration time and are never silently defaulted.
func (p Policy) Validate() error {
	if p.MaxHits <= 0 || p.Window <= 0 {
		return fmt.Errorf("%w: max_hits=%d window=%s", ErrInvalidPolicy, p.MaxHits, p.Window)
	}
	return nil
}

// Default limit keys seeded at registry construction. Callers register
// additional keys (chat, trade, movement, login, ...) from configuration.
const (
	KeyVoiceCommand = "voice-command"
	KeyAPICall      = "api-call"
	KeyBlockchain   = "blockchain"
)

// DefaultPolicies returns the policy set seeded into every new Registry.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		KeyVoiceCommand: {MaxHits: 10, Window: time.Minute},
		KeyAPICall:      {MaxHits: 100, Window: time.Minute},
		KeyBlockchain:   {MaxHits: 5, Window: time.Minute},
	}
}

// Registry maps limit keys to policies. Safe for concurrent use; SetLimit
// is last-write-wins.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewRegistry creates a registry seeded with DefaultPolicies.
func NewRegistry() *Registry {
	return &Registry{policies: DefaultPolicies()}
}

// SetLimit registers or overrides the policy for a key.
func (r *Registry) SetLimit(key string, p Policy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("set limit %q: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[key] = p
	return nil
}

// Replace atomically swaps the whole policy set. All policies are
// validated before any change is applied, so a bad set leaves the old one
// fully intact. Recorded hits are untouched; keys absent from the new set
// simply stop limiting.
func (r *Registry) Replace(policies map[string]Policy) error {
	next := make(map[string]Policy, len(policies))
	for key, p := range policies {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("replace policies, key %q: %w", key, err)
		}
		next[key] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = next
	return nil
}

// GetLimit returns the policy for a key, or false when none is registered.
func (r *Registry) GetLimit(key string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[key]
	return p, ok
}

// Keys returns all registered limit keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.policies))
	for key := range r.policies {
		keys = append(keys, key)
	}
	return keys
}

// Policies returns a copy of the full policy map.
func (r *Registry) Policies() map[string]Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Policy, len(r.policies))
	for key, p := range r.policies {
		out[key] = p
	}
	return out
}
