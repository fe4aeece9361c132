// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// =============================================================================
// Constants
// =============================================================================

// MaxPlanAttempts bounds the plan-level retry: one initial attempt plus two
// re-plans with injected validator feedback.
const MaxPlanAttempts = 3

// feedbackSeparator joins violation strings into the feedback injected into
// the next attempt.
const feedbackSeparator = " | "

// Fallback payload literals. Returned unchanged when every attempt is
// rejected; delivery layers key off the consideration text.
const (
	FallbackHeadline      = "System Alert"
	FallbackExplanation   = "Agent validation failed. Reverting to manual command."
	FallbackConsideration = "Manual Override Required"
	FallbackRationale     = "Physics constraints violated."
)

// =============================================================================
// Engine
// =============================================================================

// MetricsRecorder receives pipeline outcome observations. Implementations
// must be safe for concurrent use; a nil recorder disables recording.
type MetricsRecorder interface {
	RecordAttempt()
	RecordViolations(count int)
	RecordAccepted(attempts int)
	RecordFallback()
}

// Engine is the closed-loop orchestration state machine.
//
// # Description
//
// One Run call sequences COMPUTE_PHYSICS → STAGE1 → STAGE2 → VALIDATE and
// loops through RETRY with injected feedback until ACCEPT or FALLBACK. The
// ProcessedGraph is computed exactly once per call and reused across
// retries. No recommendation reaches the caller unless it is consistent
// with the deterministic physics, or explicitly marked as the degraded
// fallback.
//
// # Thread Safety
//
// Safe for concurrent use: all per-request state lives in Run's frame and
// the per-call StatusTracker. Concurrent Run calls must not share trackers.
type Engine struct {
	reasoner agents.Reasoner
	invoker  *agents.Invoker
	metrics  MetricsRecorder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches a pipeline metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an Engine over the given reasoning capability and retry policy.
func New(reasoner agents.Reasoner, retry agents.RetryConfig, opts ...Option) *Engine {
	e := &Engine{
		reasoner: reasoner,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.invoker = agents.NewInvoker(retry, e.logger)
	return e
}

// Request carries everything one orchestration call consumes.
type Request struct {
	Telemetry      datatypes.RawTelemetry
	Environment    datatypes.EnvironmentContext
	Infrastructure datatypes.InfrastructureContext

	// HistorySummary is the caller-resolved historical context. The caller
	// substitutes its fallback sentence before the engine sees it.
	HistorySummary string

	// PreviousRecommendation, when present, seeds the first attempt's
	// recommendation context (continuity across ticks).
	PreviousRecommendation *datatypes.Recommendation
}

// Run executes one full orchestration call.
//
// # Description
//
// Terminates in at most MaxPlanAttempts attempts. On acceptance returns the
// validated plan; after exhausting attempts returns the fixed fallback
// payload with Fallback set. Any non-rate-limit agent failure aborts the
// call with a *agents.AgentError, a hard failure of the whole request as
// opposed to a validation rejection, which is always absorbed by the loop.
//
// # Inputs
//
//   - ctx: cancellation for all agent calls and backoff sleeps.
//   - req: the request inputs; treated as immutable.
//   - status: this call's tracker; must not be shared across calls. May be
//     nil when no observer cares.
//
// # Outputs
//
//   - *datatypes.AnalysisResult: validated plan or fallback payload.
//   - error: non-nil only for fatal agent failures or cancellation.
func (e *Engine) Run(ctx context.Context, req Request, status *StatusTracker) (*datatypes.AnalysisResult, error) {
	if status == nil {
		status = NewStatusTracker()
	}
	defer status.Close()

	e.logger.Info("executing reasoning graph",
		"step", req.Telemetry.Step,
		"active_cells", req.Telemetry.ActiveCells)

	status.MarkRunning(StageGraphPhysics)
	graph := TranslatePhysics(req.Telemetry, req.Environment, req.Infrastructure)
	status.MarkComplete(StageGraphPhysics)

	feedback := ""
	previous := req.PreviousRecommendation

	for attempt := 1; attempt <= MaxPlanAttempts; attempt++ {
		if e.metrics != nil {
			e.metrics.RecordAttempt()
		}

		status.MarkRunning(StageLevelOne)
		stageOne, err := e.runStageOne(ctx, graph, req.HistorySummary, feedback)
		if err != nil {
			status.MarkError(StageLevelOne)
			return nil, err
		}
		status.MarkComplete(StageLevelOne)

		status.MarkRunning(StageLevelTwo)
		stageTwo, err := e.runStageTwo(ctx, stageOne, feedback, previous)
		if err != nil {
			status.MarkError(StageLevelTwo)
			return nil, err
		}
		status.MarkComplete(StageLevelTwo)

		status.MarkRunning(StageValidation)
		violations := ValidateReasoning(graph, stageOne.Risk, stageTwo.Recommendation)

		if len(violations) == 0 {
			status.MarkComplete(StageValidation)
			if e.metrics != nil {
				e.metrics.RecordAccepted(attempt)
			}
			e.logger.Info("plan validated", "attempt", attempt)
			return &datatypes.AnalysisResult{
				Notifications:  stageTwo.Notifications.Alerts,
				Recommendation: stageTwo.Recommendation,
				Physics:        graph.Physics,
				Attempts:       attempt,
			}, nil
		}

		if e.metrics != nil {
			e.metrics.RecordViolations(len(violations))
		}
		e.logger.Warn("logic violations found, forcing replan",
			"attempt", attempt,
			"violations", len(violations))

		status.MarkError(StageValidation)
		status.Reset(StageLevelOne)
		status.Reset(StageLevelTwo)

		feedback = strings.Join(violations, feedbackSeparator)
		rejected := stageTwo.Recommendation
		previous = &rejected
	}

	status.MarkError(StageValidation)
	if e.metrics != nil {
		e.metrics.RecordFallback()
	}
	e.logger.Error("plan attempts exhausted, returning fallback payload")

	return &datatypes.AnalysisResult{
		Notifications: []datatypes.NotificationItem{{
			Headline:    FallbackHeadline,
			Explanation: FallbackExplanation,
		}},
		Recommendation: datatypes.Recommendation{
			Consideration:   FallbackConsideration,
			Rationale:       FallbackRationale,
			ConfidenceScore: 0,
		},
		Physics:  graph.Physics,
		Fallback: true,
		Attempts: MaxPlanAttempts,
	}, nil
}
