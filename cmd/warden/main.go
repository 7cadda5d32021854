// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package main is the entry point for the Warden server.
//
// Warden rate-limits and scores player actions for multiplayer backends.
// Every inbound action is checked against sliding-window limits and
// behavioral rules; violations feed per-identity risk profiles that drive
// automated enforcement (warnings, kicks, bans).
//
// # Startup order
//
//  1. Configuration: Koanf v2 over defaults, YAML file, and WARDEN_*
//     environment variables
//  2. Profile store: in-memory or BadgerDB, per storage.backend
//  3. Engine: limiter, rule evaluator, risk engine, dispatcher
//  4. Supervisor tree: maintenance loop and HTTP API under suture
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests within the configured timeout, then the maintenance
// loop and profile store are closed.
//
// # Hot reload
//
// When a config file is present, edits to it replace the limit policies
// and rule set at runtime. Server, storage, and job settings require a
// restart.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wardenhq/warden/internal/api"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/enforce"
	"github.com/wardenhq/warden/internal/engine"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/ratelimit"
	"github.com/wardenhq/warden/internal/risk"
	"github.com/wardenhq/warden/internal/rules"
	"github.com/wardenhq/warden/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("storage_backend", cfg.Storage.Backend).
		Bool("strict_mode", cfg.Security.StrictMode).
		Msg("Starting Warden")

	store, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open profile store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing profile store")
		}
	}()

	eng, err := buildEngine(cfg, store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build engine")
	}

	router := api.NewRouter(eng, api.RouterConfig{
		RequestLimit: cfg.Server.APIRateLimit,
		Window:       cfg.Server.APIRateWindow,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddCoreService(supervisor.NewEngineService(eng))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.Timeout))

	watchConfig(eng)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor stopped with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", fmt.Sprint(svc.Service)).Msg("Service missed shutdown timeout")
		}
	}
	logging.Info().Msg("Shutdown complete")
}

// openStore selects the profile store backend.
func openStore(cfg *config.Config) (risk.Store, error) {
	switch cfg.Storage.Backend {
	case "badger":
		return risk.OpenBadgerStore(cfg.Storage.Path)
	default:
		return risk.NewMemoryStore(), nil
	}
}

// buildEngine wires the check pipeline from configuration.
func buildEngine(cfg *config.Config, store risk.Store) (*engine.Engine, error) {
	limits := ratelimit.NewRegistry()
	if err := limits.Replace(cfg.Policies()); err != nil {
		return nil, fmt.Errorf("limit policies: %w", err)
	}
	limiter := ratelimit.NewLimiter(limits)

	ruleSet, err := cfg.BuildRules()
	if err != nil {
		return nil, err
	}
	ruleRegistry := rules.NewRegistry()
	if err := ruleRegistry.Replace(ruleSet); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	history := rules.NewHistory(256, maxRuleWindow(ruleSet))
	evaluator := rules.NewEvaluator(ruleRegistry, history, nil)
	riskEngine := risk.NewEngine(store, cfg.Risk)

	notifiers := []enforce.Notifier{enforce.NewLogNotifier(logging.Logger())}
	if cfg.Enforce.Webhook.Enabled {
		notifiers = append(notifiers, enforce.NewWebhookNotifier(cfg.Enforce.Webhook))
	}
	dispatcher := enforce.NewDispatcher(
		enforce.WithAccountActions(engine.RiskAccountActions{Risk: riskEngine}),
		enforce.WithAuditLogger(enforce.NewZerologAudit(logging.Logger())),
		enforce.WithNotifiers(notifiers...),
	)

	return engine.New(engine.Params{
		Limits:          limits,
		Limiter:         limiter,
		Rules:           ruleRegistry,
		Evaluator:       evaluator,
		History:         history,
		Risk:            riskEngine,
		Dispatcher:      dispatcher,
		Events:          engine.NewEventStore(0),
		StrictMode:      cfg.Security.StrictMode,
		CleanupInterval: cfg.Jobs.CleanupInterval,
		DecayInterval:   cfg.Jobs.DecayInterval,
		DecayAmount:     cfg.Jobs.DecayAmount,
	}), nil
}

// maxRuleWindow returns the widest rule time window, floored at ten
// minutes, so history retention always covers every rule.
func maxRuleWindow(ruleSet []rules.Rule) time.Duration {
	maxAge := 10 * time.Minute
	for _, rule := range ruleSet {
		var windows []time.Duration
		if rule.Movement != nil {
			windows = append(windows, rule.Movement.TimeWindow)
		}
		if rule.RateLimit != nil {
			windows = append(windows, rule.RateLimit.TimeWindow)
		}
		if rule.Pattern != nil {
			windows = append(windows, rule.Pattern.TimeWindow)
		}
		for _, window := range windows {
			if window > maxAge {
				maxAge = window
			}
		}
	}
	return maxAge
}

// watchConfig hot-reloads limit policies and rules on config file edits.
func watchConfig(eng *engine.Engine) {
	path := config.FindConfigFile()
	if path == "" {
		return
	}

	err := config.WatchConfigFile(path, func() {
		cfg, err := config.LoadFile(path)
		if err != nil {
			logging.Error().Err(err).Msg("Config reload failed, keeping previous configuration")
			return
		}
		if err := eng.ReplacePolicies(cfg.Policies()); err != nil {
			logging.Error().Err(err).Msg("Policy reload failed")
			return
		}
		ruleSet, err := cfg.BuildRules()
		if err != nil {
			logging.Error().Err(err).Msg("Rule reload failed")
			return
		}
		if err := eng.ReplaceRules(ruleSet); err != nil {
			logging.Error().Err(err).Msg("Rule reload failed")
			return
		}
		logging.Info().Str("path", path).Msg("Configuration reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config watch unavailable")
	}
}
