// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package config loads layered configuration using Koanf v2:
// built-in defaults, then an optional YAML file, then WARDEN_-prefixed
// environment variables, each layer overriding the one below.
//
// The loaded Config is validated with go-playground/validator before use;
// a config that names an unknown rule type or non-monotonic risk weights
// fails startup instead of surfacing later as odd enforcement decisions.
//
// Hot reload is supported through WatchConfigFile: callers re-run Load and
// swap the registries atomically, so in-flight checks always see either
// the old or the new policy set, never a mix.
package config
