// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

/*
Package supervisor provides process supervision for Warden using suture v4.

The tree has two layers for failure isolation:

	root ("warden")
	├── core-layer
	│   └── EngineService (maintenance loop: window cleanup, risk decay)
	└── api-layer
	    └── HTTPService (chi router behind net/http)

A crash in either layer restarts only that layer's services, with suture's
failure counting and exponential backoff preventing restart storms.
Supervision events are logged through slog via the sutureslog adapter,
which the logging package bridges back to zerolog.

Services return nil for a clean stop, an error to request a restart, and
must return promptly when their context is canceled. Shutdown hangs can be
inspected with Tree.UnstoppedServiceReport.
*/
package supervisor
