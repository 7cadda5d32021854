// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package rules

import "path"

// PatternMatcher decides whether an action type matches a rule's pattern.
// Implementations must be deterministic and side-effect-free; the matcher
// is pluggable so deployments can swap in richer matching.
type PatternMatcher interface {
	Matches(pattern, action string) bool
}

// GlobMatcher matches action types with path-style globs ("trade*",
// "chat.?"). A pattern without metacharacters matches exactly. This is the
// default matcher.
type GlobMatcher struct{}

// Matches implements PatternMatcher.
func (GlobMatcher) Matches(pattern, action string) bool {
	ok, err := path.Match(pattern, action)
	if err != nil {
		// Malformed pattern: fall back to exact comparison rather than
		// silently matching nothing.
		return pattern == action
	}
	return ok
}
