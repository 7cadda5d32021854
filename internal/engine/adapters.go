// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package engine

import (
	"context"

	"github.com/wardenhq/warden/internal/risk"
)

// RiskAccountActions adapts the risk engine to the enforcement
// dispatcher's account interface, closing the loop from a ban-severity
// rule to a banned profile.
type RiskAccountActions struct {
	Risk *risk.Engine
}

// Ban marks the identity banned in its risk profile.
func (a RiskAccountActions) Ban(ctx context.Context, userID string) error {
	_, err := a.Risk.Ban(ctx, userID)
	return err
}
