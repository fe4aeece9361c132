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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func rateLimitErr() error {
	return &AgentError{Variant: VariantRisk, RateLimited: true, Err: errors.New("429")}
}

func TestInvoke_SuccessFirstAttempt(t *testing.T) {
	inv := NewInvoker(fastRetryConfig(3), nil)
	calls := 0

	result, err := Invoke(context.Background(), inv, VariantRisk,
		func(context.Context) (*datatypes.RiskAnalysis, error) {
			calls++
			return &datatypes.RiskAnalysis{ThreatLevel: datatypes.ThreatLow}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, datatypes.ThreatLow, result.ThreatLevel)
	assert.Equal(t, 1, calls)
}

// TestInvoke_NonRetryableFailsFast verifies schema and transport failures
// are never retried.
func TestInvoke_NonRetryableFailsFast(t *testing.T) {
	inv := NewInvoker(fastRetryConfig(3), nil)
	calls := 0
	fatal := &AgentError{Variant: VariantRisk, Err: errors.New("schema violation")}

	result, err := Invoke(context.Background(), inv, VariantRisk,
		func(context.Context) (*datatypes.RiskAnalysis, error) {
			calls++
			return nil, fatal
		})

	assert.Nil(t, result)
	assert.Equal(t, 1, calls)
	var agentErr *AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.False(t, agentErr.RateLimited)
}

// TestInvoke_RateLimitRetried verifies throttling failures retry with
// backoff until the call succeeds.
func TestInvoke_RateLimitRetried(t *testing.T) {
	inv := NewInvoker(fastRetryConfig(3), nil)
	calls := 0

	result, err := Invoke(context.Background(), inv, VariantRisk,
		func(context.Context) (*datatypes.RiskAnalysis, error) {
			calls++
			if calls < 3 {
				return nil, rateLimitErr()
			}
			return &datatypes.RiskAnalysis{ThreatLevel: datatypes.ThreatElevated}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, datatypes.ThreatElevated, result.ThreatLevel)
}

// TestInvoke_ExhaustionRaisesLastError verifies the attempt bound re-raises
// the final rate-limit failure.
func TestInvoke_ExhaustionRaisesLastError(t *testing.T) {
	inv := NewInvoker(fastRetryConfig(3), nil)
	calls := 0

	result, err := Invoke(context.Background(), inv, VariantBehavior,
		func(context.Context) (*datatypes.FireAnalysis, error) {
			calls++
			return nil, rateLimitErr()
		})

	assert.Nil(t, result)
	assert.Equal(t, 3, calls)
	assert.True(t, IsRateLimited(err))
}

// TestInvoke_ContextCancelledDuringBackoff verifies cancellation interrupts
// the backoff sleep.
func TestInvoke_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := fastRetryConfig(3)
	cfg.InitialBackoff = time.Minute
	cfg.MaxBackoff = time.Minute
	inv := NewInvoker(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Invoke(ctx, inv, VariantRisk,
		func(context.Context) (*datatypes.RiskAnalysis, error) {
			return nil, rateLimitErr()
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewInvoker_ClampsConfig(t *testing.T) {
	inv := NewInvoker(RetryConfig{}, nil)

	assert.Equal(t, 1, inv.config.MaxAttempts)
	assert.Equal(t, time.Second, inv.config.InitialBackoff)
	assert.Equal(t, 2.0, inv.config.BackoffFactor)
	assert.GreaterOrEqual(t, inv.config.MaxBackoff, inv.config.InitialBackoff)
	assert.Nil(t, inv.limiter, "zero rate disables the throttle")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(rateLimitErr()))
	assert.False(t, IsRateLimited(&AgentError{Variant: VariantRisk, Err: errors.New("boom")}))
	assert.False(t, IsRateLimited(errors.New("plain")))
	assert.False(t, IsRateLimited(nil))
}
