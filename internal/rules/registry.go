// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package rules

import (
	"fmt"
	"sync"
)

// Registry holds the configured rule set in registration order. Rule IDs
// are unique. Safe for concurrent use; Replace swaps the whole set
// atomically for hot reload without touching any evaluation state held
// elsewhere (hit logs, action history).
type Registry struct {
	mu    sync.RWMutex
	rules []Rule
	index map[string]int
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register validates and appends a rule.
func (r *Registry) Register(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[rule.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateRule, rule.ID)
	}
	r.index[rule.ID] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// Replace validates the new set and swaps it in atomically. On any
// validation failure the current set is left untouched.
func (r *Registry) Replace(rules []Rule) error {
	index := make(map[string]int, len(rules))
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
		if _, exists := index[rule.ID]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateRule, rule.ID)
		}
		index[rule.ID] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append([]Rule(nil), rules...)
	r.index = index
	return nil
}

// Get returns the rule with the given ID.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// SetEnabled toggles a rule without replacing the set.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("rule not found: %s", id)
	}
	r.rules[i].Enabled = enabled
	return nil
}

// Enabled returns the enabled rules in registration order.
func (r *Registry) Enabled() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	return out
}

// All returns every registered rule in registration order.
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules...)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
