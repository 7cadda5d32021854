// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/wardenhq/warden/internal/enforce"
	"github.com/wardenhq/warden/internal/engine"
	"github.com/wardenhq/warden/internal/ratelimit"
	"github.com/wardenhq/warden/internal/risk"
	"github.com/wardenhq/warden/internal/rules"
)

var testBase = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	router http.Handler
	clock  *fakeClock
	engine *engine.Engine
}

func newTestServer(t *testing.T, routerCfg RouterConfig) *testServer {
	t.Helper()

	clock := &fakeClock{now: testBase}

	limits := ratelimit.NewRegistry()
	if err := limits.SetLimit("chat", ratelimit.Policy{MaxHits: 3, Window: 30 * time.Second}); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	limiter := ratelimit.NewLimiter(limits, ratelimit.WithClock(clock.Now))

	ruleRegistry := rules.NewRegistry()
	if err := ruleRegistry.Replace(rules.DefaultRules()); err != nil {
		t.Fatalf("Replace rules: %v", err)
	}

	history := rules.NewHistory(64, 10*time.Minute, rules.WithHistoryClock(clock.Now))
	evaluator := rules.NewEvaluator(ruleRegistry, history, nil)
	riskEngine := risk.NewEngine(risk.NewMemoryStore(), risk.DefaultConfig(), risk.WithClock(clock.Now))
	dispatcher := enforce.NewDispatcher(enforce.WithDispatchClock(clock.Now))

	eng := engine.New(engine.Params{
		Limits:     limits,
		Limiter:    limiter,
		Rules:      ruleRegistry,
		Evaluator:  evaluator,
		History:    history,
		Risk:       riskEngine,
		Dispatcher: dispatcher,
		Events:     engine.NewEventStore(100),
		Clock:      clock.Now,
	})

	return &testServer{
		router: NewRouter(eng, routerCfg),
		clock:  clock,
		engine: eng,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func chatBody(s *testServer, userID string) checkRequest {
	return checkRequest{UserID: userID, Action: "chat", Timestamp: s.clock.Now()}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCheckActionAllowed(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodPost, "/api/v1/actions", chatBody(s, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	decision := decodeBody[engine.Decision](t, rec)
	if !decision.Allowed {
		t.Errorf("decision = %+v, want allowed", decision)
	}
	if decision.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", decision.Remaining)
	}
}

func TestCheckActionRateLimited(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	for i := 0; i < 3; i++ {
		if rec := s.do(t, http.MethodPost, "/api/v1/actions", chatBody(s, "u1")); rec.Code != http.StatusOK {
			t.Fatalf("hit %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := s.do(t, http.MethodPost, "/api/v1/actions", chatBody(s, "u1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429: %s", rec.Code, rec.Body.String())
	}
	decision := decodeBody[engine.Decision](t, rec)
	if decision.Allowed {
		t.Error("rejected decision should not be allowed")
	}
	if !decision.RateLimited {
		t.Error("decision should be marked rate limited")
	}
}

func TestCheckActionBadRequests(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/actions", checkRequest{Action: "chat"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user: status = %d, want 400", rec.Code)
	}
}

func TestCheckActionReportsViolation(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	first := checkRequest{
		UserID:    "u1",
		Action:    "move",
		Timestamp: s.clock.Now(),
		Position:  &rules.Position{X: 0, Y: 0},
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/actions", first); rec.Code != http.StatusOK {
		t.Fatalf("first move: status = %d", rec.Code)
	}

	s.clock.Advance(time.Second)
	second := checkRequest{
		UserID:    "u1",
		Action:    "move",
		Timestamp: s.clock.Now(),
		Position:  &rules.Position{X: 600, Y: 0},
	}
	rec := s.do(t, http.MethodPost, "/api/v1/actions", second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second move: status = %d", rec.Code)
	}

	decision := decodeBody[engine.Decision](t, rec)
	if len(decision.Events) != 1 {
		t.Fatalf("Events = %d, want 1", len(decision.Events))
	}
	if decision.Events[0].RuleID != "movement_speed" {
		t.Errorf("RuleID = %s, want movement_speed", decision.Events[0].RuleID)
	}
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	// Trigger one movement violation to populate the store.
	s.do(t, http.MethodPost, "/api/v1/actions", checkRequest{
		UserID: "u1", Action: "move", Timestamp: s.clock.Now(),
		Position: &rules.Position{X: 0, Y: 0},
	})
	s.clock.Advance(time.Second)
	s.do(t, http.MethodPost, "/api/v1/actions", checkRequest{
		UserID: "u1", Action: "move", Timestamp: s.clock.Now(),
		Position: &rules.Position{X: 600, Y: 0},
	})

	rec := s.do(t, http.MethodGet, "/api/v1/events?user_id=u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	events := decodeBody[[]rules.SecurityEvent](t, rec)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	id := events[0].ID

	rec = s.do(t, http.MethodGet, "/api/v1/events/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/events/"+id+"/resolve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: status = %d", rec.Code)
	}
	if event := decodeBody[rules.SecurityEvent](t, rec); !event.Resolved {
		t.Error("resolved event should report Resolved")
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/events/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get missing: status = %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/events/missing/resolve", nil); rec.Code != http.StatusNotFound {
		t.Errorf("resolve missing: status = %d, want 404", rec.Code)
	}
}

func TestListEventsRejectsBadLimit(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/events?limit=banana", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProfileAdministration(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	// Unknown identities read as fresh profiles.
	rec := s.do(t, http.MethodGet, "/api/v1/profiles/u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	profile := decodeBody[risk.Profile](t, rec)
	if profile.TrustLevel != risk.TrustNormal || profile.RiskScore != 0 {
		t.Errorf("fresh profile = %+v", profile)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/profiles/u1/ban", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ban: status = %d", rec.Code)
	}
	if profile = decodeBody[risk.Profile](t, rec); profile.TrustLevel != risk.TrustBanned {
		t.Errorf("TrustLevel = %s, want banned", profile.TrustLevel)
	}

	// Banned identities cannot be promoted.
	if rec := s.do(t, http.MethodPost, "/api/v1/profiles/u1/promote", nil); rec.Code != http.StatusConflict {
		t.Errorf("promote banned: status = %d, want 409", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/profiles/u1/unban", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unban: status = %d", rec.Code)
	}
	if profile = decodeBody[risk.Profile](t, rec); profile.TrustLevel != risk.TrustNormal {
		t.Errorf("TrustLevel = %s, want normal", profile.TrustLevel)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/profiles/u1/promote", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("promote: status = %d", rec.Code)
	}
	if profile = decodeBody[risk.Profile](t, rec); profile.TrustLevel != risk.TrustTrusted {
		t.Errorf("TrustLevel = %s, want trusted", profile.TrustLevel)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/profiles/u1/demote", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("demote: status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/profiles", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	if profiles := decodeBody[[]risk.Profile](t, rec); len(profiles) != 1 {
		t.Errorf("profiles = %d, want 1", len(profiles))
	}

	if rec := s.do(t, http.MethodPost, "/api/v1/profiles/ghost/unban", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unban unknown: status = %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/profiles/ghost/demote", nil); rec.Code != http.StatusNotFound {
		t.Errorf("demote unknown: status = %d, want 404", rec.Code)
	}
}

func TestLimitManagement(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/limits", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	limits := decodeBody[map[string]ratelimit.Policy](t, rec)
	if _, ok := limits["chat"]; !ok {
		t.Errorf("limits = %v, want chat key", limits)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/limits/trade", limitRequest{MaxHits: 5, Window: "1m"})
	if rec.Code != http.StatusOK {
		t.Fatalf("put: status = %d: %s", rec.Code, rec.Body.String())
	}
	if p, ok := s.engine.Limits().GetLimit("trade"); !ok || p.MaxHits != 5 || p.Window != time.Minute {
		t.Errorf("GetLimit(trade) = %+v, %v", p, ok)
	}

	if rec := s.do(t, http.MethodPut, "/api/v1/limits/trade", limitRequest{MaxHits: 5, Window: "soon"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad window: status = %d, want 400", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, "/api/v1/limits/trade", limitRequest{MaxHits: 0, Window: "1m"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid policy: status = %d, want 400", rec.Code)
	}
}

func TestRuleManagement(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	if ruleSet := decodeBody[[]rules.Rule](t, rec); len(ruleSet) != 2 {
		t.Fatalf("rules = %d, want 2", len(ruleSet))
	}

	rec = s.do(t, http.MethodPut, "/api/v1/rules/movement_speed/enabled", enabledRequest{Enabled: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("disable: status = %d", rec.Code)
	}
	if rule := decodeBody[rules.Rule](t, rec); rule.Enabled {
		t.Error("rule should be disabled")
	}

	// Disabled rules stop producing events.
	ctx := context.Background()
	s.do(t, http.MethodPost, "/api/v1/actions", checkRequest{
		UserID: "u1", Action: "move", Timestamp: s.clock.Now(),
		Position: &rules.Position{X: 0, Y: 0},
	})
	s.clock.Advance(time.Second)
	decision, err := s.engine.Check(ctx, rules.ActionEvent{
		UserID: "u1", Action: "move", Timestamp: s.clock.Now(),
		Position: &rules.Position{X: 600, Y: 0},
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(decision.Events) != 0 {
		t.Errorf("Events = %d, want 0 with rule disabled", len(decision.Events))
	}

	if rec := s.do(t, http.MethodPut, "/api/v1/rules/ghost/enabled", enabledRequest{Enabled: true}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown rule: status = %d, want 404", rec.Code)
	}
}

func TestTransportRateLimit(t *testing.T) {
	s := newTestServer(t, RouterConfig{RequestLimit: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		if rec := s.do(t, http.MethodGet, "/api/v1/limits", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/limits", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}

	// The transport limiter never guards health checks.
	if rec := s.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", rec.Code)
	}
}
