// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents defines the reasoning capability the orchestration engine
// consumes, plus provider adapters. The engine never hard-codes a provider:
// it sees only the Reasoner interface and a typed *AgentError on failure.
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// =============================================================================
// Variants
// =============================================================================

// Variant names one of the four reasoning capabilities.
type Variant string

const (
	VariantBehavior       Variant = "behavior"
	VariantRisk           Variant = "risk"
	VariantNotifications  Variant = "notifications"
	VariantRecommendation Variant = "recommendation"
)

// =============================================================================
// Contexts
// =============================================================================

// BehaviorContext is the input to the fire behavior agent.
type BehaviorContext struct {
	Graph          datatypes.ProcessedGraph
	HistorySummary string
}

// RiskContext is the input to the risk agent. Feedback carries validator
// violations from a rejected previous attempt; empty on the first attempt.
type RiskContext struct {
	Graph          datatypes.ProcessedGraph
	HistorySummary string
	Feedback       string
}

// SynthesisContext is the input to the second-stage agents, which consume
// the first stage's results. Previous is the recommendation rejected on the
// prior attempt (or the caller-supplied previous recommendation); nil on a
// fresh assessment.
type SynthesisContext struct {
	Fire     datatypes.FireAnalysis
	Risk     datatypes.RiskAnalysis
	Feedback string
	Previous *datatypes.Recommendation
}

// =============================================================================
// Capability Interface
// =============================================================================

// Reasoner is the pluggable reasoning capability: four schema-constrained
// operations, each a single suspension point with unbounded latency.
//
// Implementations must be safe for concurrent use; the engine calls
// AnalyzeBehavior/AssessRisk and DraftNotifications/Recommend in parallel
// pairs. Any failure must surface as a *AgentError so the caller can
// classify it; schema violations on the provider side must fail the call,
// never reach the validator as malformed values.
type Reasoner interface {
	AnalyzeBehavior(ctx context.Context, in BehaviorContext) (*datatypes.FireAnalysis, error)
	AssessRisk(ctx context.Context, in RiskContext) (*datatypes.RiskAnalysis, error)
	DraftNotifications(ctx context.Context, in SynthesisContext) (*datatypes.NotificationSet, error)
	Recommend(ctx context.Context, in SynthesisContext) (*datatypes.Recommendation, error)
}

// =============================================================================
// Errors
// =============================================================================

// AgentError wraps any transport, parse, schema, or rate-limit failure from
// a reasoning call.
type AgentError struct {
	// Variant is the capability that failed.
	Variant Variant

	// RateLimited marks transient provider throttling; only these failures
	// are retried by the invoker.
	RateLimited bool

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *AgentError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("%s agent rate limited: %v", e.Variant, e.Err)
	}
	return fmt.Sprintf("%s agent call failed: %v", e.Variant, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AgentError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is an AgentError classified as a
// transient rate-limit failure.
func IsRateLimited(err error) bool {
	var agentErr *AgentError
	return errors.As(err, &agentErr) && agentErr.RateLimited
}
