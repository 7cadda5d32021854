// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package enforce

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/rules"
)

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	URL     string            `json:"url" koanf:"url"`
	Headers map[string]string `json:"headers,omitempty" koanf:"headers"`
	Enabled bool              `json:"enabled" koanf:"enabled"`

	// RatePerSecond caps outbound deliveries; bursts up to Burst are
	// allowed. Zero means 2/s with a burst of 5.
	RatePerSecond float64 `json:"rate_per_second" koanf:"rate_per_second"`
	Burst         int     `json:"burst" koanf:"burst"`

	// Timeout bounds one delivery attempt. Zero means 10s.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`
}

// WebhookPayload is the JSON body posted to the endpoint.
type WebhookPayload struct {
	Event     rules.SecurityEvent `json:"event"`
	EventType string              `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	Source    string              `json:"source"`
}

// WebhookNotifier posts security events to an HTTP endpoint. Delivery
// runs through a token-bucket limiter and a circuit breaker: when the
// endpoint keeps failing the breaker opens and sends are rejected fast
// instead of stacking up timeouts.
type WebhookNotifier struct {
	mu      sync.RWMutex
	url     string
	headers map[string]string
	enabled bool

	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewWebhookNotifier creates a webhook notifier from config.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "enforcement-webhook",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Webhook circuit breaker state change")
		},
	})

	return &WebhookNotifier{
		url:     cfg.URL,
		headers: headers,
		enabled: cfg.Enabled,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		breaker: breaker,
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Enabled reports whether the notifier is configured and switched on.
func (n *WebhookNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.url != ""
}

// SetEnabled switches the notifier on or off.
func (n *WebhookNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send posts the event. It blocks for the rate limiter (honoring ctx) and
// returns the breaker's rejection error when the circuit is open.
func (n *WebhookNotifier) Send(ctx context.Context, event rules.SecurityEvent) error {
	n.mu.RLock()
	url := n.url
	enabled := n.enabled
	headers := make(map[string]string, len(n.headers))
	for k, v := range n.headers {
		headers[k] = v
	}
	n.mu.RUnlock()

	if !enabled || url == "" {
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook throttle: %w", err)
	}

	payload := WebhookPayload{
		Event:     event,
		EventType: "security_event",
		Timestamp: time.Now(),
		Source:    "warden",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("send webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return struct{}{}, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}
