// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/wardenhq/warden/internal/engine"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/ratelimit"
	"github.com/wardenhq/warden/internal/risk"
	"github.com/wardenhq/warden/internal/rules"
)

// Handler carries the HTTP handlers' shared state.
type Handler struct {
	engine *engine.Engine
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// checkRequest is the wire shape of one action check.
type checkRequest struct {
	UserID    string          `json:"user_id"`
	Action    string          `json:"action"`
	Timestamp time.Time       `json:"timestamp"`
	Position  *rules.Position `json:"position,omitempty"`
}

// CheckAction runs one action through the engine. The decision is always
// returned in full; the status code mirrors it: 200 allowed, 429 rate
// limited, 403 otherwise rejected.
func (h *Handler) CheckAction(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := h.engine.Check(r.Context(), rules.ActionEvent{
		UserID:    req.UserID,
		Action:    req.Action,
		Timestamp: req.Timestamp,
		Position:  req.Position,
	})
	if errors.Is(err, engine.ErrInvalidAction) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "check failed")
		return
	}

	status := http.StatusOK
	switch {
	case decision.Allowed:
	case decision.RateLimited:
		status = http.StatusTooManyRequests
	default:
		status = http.StatusForbidden
	}
	writeJSON(w, status, decision)
}

// ListProfiles returns every persisted profile.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.engine.Risk().Profiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "profile listing failed")
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GetProfile returns one identity's profile; unknown identities get a
// fresh zero-score view.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, err := h.engine.Risk().Profile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// BanProfile bans an identity.
func (h *Handler) BanProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, err := h.engine.Risk().Ban(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ban failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UnbanProfile lifts a ban.
func (h *Handler) UnbanProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, err := h.engine.Risk().Unban(r.Context(), userID)
	if errors.Is(err, risk.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unban failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// PromoteProfile marks an identity trusted.
func (h *Handler) PromoteProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, err := h.engine.Risk().Promote(r.Context(), userID)
	if errors.Is(err, risk.ErrBannedPromotion) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "promote failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// DemoteProfile revokes a promotion.
func (h *Handler) DemoteProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, err := h.engine.Risk().Demote(r.Context(), userID)
	if errors.Is(err, risk.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "demote failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListEvents returns recent security events, newest first, narrowed by
// the optional user_id, rule_id, severity, unresolved, and limit query
// parameters.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := engine.EventFilter{
		UserID:   q.Get("user_id"),
		RuleID:   q.Get("rule_id"),
		Severity: rules.EventSeverity(q.Get("severity")),
	}
	if q.Get("unresolved") == "true" {
		filter.Unresolved = true
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	events := h.engine.Events().List(filter)
	if events == nil {
		events = []rules.SecurityEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent returns one security event by ID.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.engine.Events().Get(chi.URLParam(r, "eventID"))
	if errors.Is(err, engine.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "event lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ResolveEvent marks an event reviewed.
func (h *Handler) ResolveEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	err := h.engine.Events().Resolve(id)
	if errors.Is(err, engine.ErrEventNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "resolve failed")
		return
	}
	event, err := h.engine.Events().Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "event lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ListLimits returns the live limit policy set.
func (h *Handler) ListLimits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Limits().Policies())
}

// limitRequest is the wire shape of one policy update.
type limitRequest struct {
	MaxHits int    `json:"max_hits"`
	Window  string `json:"window"`
}

// SetLimit registers or overrides one limit policy at runtime. Recorded
// hits for the key are preserved.
func (h *Handler) SetLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	window, err := time.ParseDuration(req.Window)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid window duration")
		return
	}

	key := chi.URLParam(r, "key")
	policy := ratelimit.Policy{MaxHits: req.MaxHits, Window: window}
	if err := h.engine.Limits().SetLimit(key, policy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]ratelimit.Policy{key: policy})
}

// ListRules returns the full rule set, registration order preserved.
func (h *Handler) ListRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Rules().All())
}

// enabledRequest toggles one rule.
type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetRuleEnabled enables or disables a rule without unloading it.
func (h *Handler) SetRuleEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ruleID := chi.URLParam(r, "ruleID")
	if err := h.engine.Rules().SetEnabled(ruleID, req.Enabled); err != nil {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	rule, _ := h.engine.Rules().Get(ruleID)
	writeJSON(w, http.StatusOK, rule)
}
