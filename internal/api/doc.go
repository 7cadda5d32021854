// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package api provides the HTTP surface using the Chi router.
//
// The check endpoint (POST /api/v1/actions) is the hot path: one request
// runs one action through the engine and returns the full decision. The
// remaining endpoints are the operator surface: profile administration,
// event review, and live limit and rule management.
//
// The router carries its own IP-based request limiting (httprate) as
// transport protection; it is independent of the domain rate limiter the
// engine applies per identity.
package api
