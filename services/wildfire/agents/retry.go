// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Retry Configuration
// =============================================================================

// RetryConfig configures per-call retry with exponential backoff.
//
// This layer protects a single agent call against provider throttling. It is
// orthogonal to the orchestration loop's plan-level retry: a retry here is
// invisible to the loop unless all attempts exhaust.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the wait before the first retry; it doubles each
	// attempt. Default: 1s
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff. Default: 30s
	MaxBackoff time.Duration

	// BackoffFactor is the backoff multiplier. Default: 2.0
	BackoffFactor float64

	// RatePerSecond throttles outbound calls client-side before they reach
	// the provider. Zero disables throttling.
	RatePerSecond float64

	// Burst is the client-side limiter burst. Default: 2.
	Burst int
}

// DefaultRetryConfig returns the production retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		RatePerSecond:  4,
		Burst:          2,
	}
}

// =============================================================================
// Invoker
// =============================================================================

// Invoker decorates single agent calls with rate-limit retry and an
// outbound throttle.
//
// # Thread Safety
//
// Safe for concurrent use; the limiter serializes token acquisition and the
// backoff state is per-call.
type Invoker struct {
	config  RetryConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewInvoker builds an Invoker from the given policy.
func NewInvoker(cfg RetryConfig, logger *slog.Logger) *Invoker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.BackoffFactor < 1.0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Invoker{config: cfg, limiter: limiter, logger: logger}
}

// Invoke runs one agent call through inv's retry policy.
//
// # Description
//
// Retries only failures classified as rate-limited (IsRateLimited), with
// exponential backoff doubling from InitialBackoff. Any other failure
// propagates immediately. Exhausting the attempt bound re-raises the last
// failure. The backoff sleep is context-aware.
//
// # Inputs
//
//   - ctx: cancellation for the call and its backoff sleeps.
//   - inv: the invoker carrying the policy.
//   - variant: capability name, for logging.
//   - call: the underlying agent call.
//
// # Outputs
//
//   - *T: the agent result on success.
//   - error: a *AgentError on failure.
func Invoke[T any](
	ctx context.Context,
	inv *Invoker,
	variant Variant,
	call func(context.Context) (*T, error),
) (*T, error) {
	backoff := inv.config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= inv.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &AgentError{Variant: variant, Err: err}
		}

		if inv.limiter != nil {
			if err := inv.limiter.Wait(ctx); err != nil {
				return nil, &AgentError{Variant: variant, Err: err}
			}
		}

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRateLimited(err) {
			return nil, err
		}
		if attempt == inv.config.MaxAttempts {
			break
		}

		inv.logger.Warn("agent rate limited, backing off",
			"variant", variant,
			"attempt", attempt,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return nil, &AgentError{Variant: variant, Err: ctx.Err()}
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * inv.config.BackoffFactor)
		if backoff > inv.config.MaxBackoff {
			backoff = inv.config.MaxBackoff
		}
	}

	return nil, lastErr
}
