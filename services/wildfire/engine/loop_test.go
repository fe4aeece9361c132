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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// testRetryConfig disables the outbound throttle and backoff sleeps so loop
// tests run instantly.
func testRetryConfig() agents.RetryConfig {
	return agents.RetryConfig{MaxAttempts: 1, InitialBackoff: 1, BackoffFactor: 2.0, MaxBackoff: 1}
}

// calmRequest produces a LOW-baseline request with no towns.
func calmRequest() Request {
	return Request{
		Telemetry:   datatypes.RawTelemetry{Step: 10, ActiveCells: 10},
		Environment: datatypes.EnvironmentContext{WindSpeed: 5, Vegetation: "grass"},
	}
}

// criticalRequest produces a CRITICAL baseline via a town inside 5km.
func criticalRequest() Request {
	req := calmRequest()
	req.Infrastructure = datatypes.InfrastructureContext{Towns: []datatypes.Town{
		{Name: "Bear Valley", DistanceKm: 3.2},
	}}
	return req
}

// recordingMetrics captures MetricsRecorder observations for assertions.
type recordingMetrics struct {
	attempts   int
	violations int
	accepted   int
	fallbacks  int
}

func (m *recordingMetrics) RecordAttempt()              { m.attempts++ }
func (m *recordingMetrics) RecordViolations(count int)  { m.violations += count }
func (m *recordingMetrics) RecordAccepted(attempts int) { m.accepted = attempts }
func (m *recordingMetrics) RecordFallback()             { m.fallbacks++ }

// TestEngineRun_AcceptsFirstAttempt verifies the happy path: a compliant
// plan is accepted on attempt one and carries the deterministic physics.
func TestEngineRun_AcceptsFirstAttempt(t *testing.T) {
	// Arrange
	reasoner := agents.NewScriptedReasoner()
	reasoner.RiskQueue = []datatypes.RiskAnalysis{{
		ThreatLevel:       datatypes.ThreatLow,
		VulnerableTargets: []string{"Forest Road 7"},
	}}
	metrics := &recordingMetrics{}
	eng := New(reasoner, testRetryConfig(), WithMetrics(metrics))
	status := NewStatusTracker()

	// Act
	result, err := eng.Run(context.Background(), calmRequest(), status)

	// Assert
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, 1, result.Attempts)
	assert.Len(t, result.Notifications, 3)
	assert.Equal(t, datatypes.ThreatLow, result.Physics.BaselineThreat)
	assert.Equal(t, StateComplete, status.State(StageValidation))
	assert.Equal(t, 1, metrics.attempts)
	assert.Equal(t, 1, metrics.accepted)
	assert.Zero(t, metrics.fallbacks)
}

// TestEngineRun_FeedbackInjection verifies a rejected attempt feeds its
// violations into the next attempt's risk and recommendation contexts, and
// that the rejected recommendation is carried as the previous one.
func TestEngineRun_FeedbackInjection(t *testing.T) {
	// Arrange: first risk downgrades and ignores the exposed town, second
	// complies.
	reasoner := agents.NewScriptedReasoner()
	reasoner.RiskQueue = []datatypes.RiskAnalysis{
		{ThreatLevel: datatypes.ThreatElevated, VulnerableTargets: []string{"Cedar Creek"}},
		{ThreatLevel: datatypes.ThreatCritical, VulnerableTargets: []string{"Bear Valley"}},
	}
	reasoner.RecQueue = []datatypes.Recommendation{
		{Consideration: "Monitor only.", Rationale: "Low spread.", ConfidenceScore: 60},
		{Consideration: "Evacuate Bear Valley.", Rationale: "Town exposed.", ConfidenceScore: 90},
	}
	metrics := &recordingMetrics{}
	eng := New(reasoner, testRetryConfig(), WithMetrics(metrics))

	// Act
	result, err := eng.Run(context.Background(), criticalRequest(), nil)

	// Assert
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "Evacuate Bear Valley.", result.Recommendation.Consideration)

	require.Len(t, reasoner.RiskCalls, 2)
	assert.Empty(t, reasoner.RiskCalls[0].Feedback, "first attempt carries no feedback")
	assert.Contains(t, reasoner.RiskCalls[1].Feedback, "Physics Violation")
	assert.Contains(t, reasoner.RiskCalls[1].Feedback, "Logic Violation")
	assert.Contains(t, reasoner.RiskCalls[1].Feedback, " | ",
		"multiple violations join with the separator")

	require.Len(t, reasoner.RecCalls, 2)
	require.NotNil(t, reasoner.RecCalls[1].Previous)
	assert.Equal(t, "Monitor only.", reasoner.RecCalls[1].Previous.Consideration,
		"the rejected recommendation is carried into the replan")

	assert.Equal(t, 2, metrics.attempts)
	assert.Equal(t, 2, metrics.violations)
	assert.Equal(t, 2, metrics.accepted)
}

// TestEngineRun_FallbackAfterExhaustion verifies the loop terminates at the
// attempt bound and returns the fixed degraded payload.
func TestEngineRun_FallbackAfterExhaustion(t *testing.T) {
	// Arrange: the risk agent never escalates.
	reasoner := agents.NewScriptedReasoner()
	reasoner.RiskQueue = []datatypes.RiskAnalysis{
		{ThreatLevel: datatypes.ThreatElevated, VulnerableTargets: []string{"Cedar Creek"}},
	}
	metrics := &recordingMetrics{}
	eng := New(reasoner, testRetryConfig(), WithMetrics(metrics))
	status := NewStatusTracker()

	// Act
	result, err := eng.Run(context.Background(), criticalRequest(), status)

	// Assert
	require.NoError(t, err, "exhaustion degrades, it does not fail")
	assert.True(t, result.Fallback)
	assert.Equal(t, MaxPlanAttempts, result.Attempts)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, FallbackHeadline, result.Notifications[0].Headline)
	assert.Equal(t, FallbackExplanation, result.Notifications[0].Explanation)
	assert.Equal(t, FallbackConsideration, result.Recommendation.Consideration)
	assert.Equal(t, FallbackRationale, result.Recommendation.Rationale)
	assert.Zero(t, result.Recommendation.ConfidenceScore)
	assert.Equal(t, datatypes.ThreatCritical, result.Physics.BaselineThreat,
		"fallback still carries the deterministic physics")

	assert.Len(t, reasoner.RiskCalls, MaxPlanAttempts)
	assert.Equal(t, StateError, status.State(StageValidation))
	assert.Equal(t, MaxPlanAttempts, metrics.attempts)
	assert.Equal(t, 1, metrics.fallbacks)
	assert.Zero(t, metrics.accepted)
}

// TestEngineRun_FatalAgentErrorAborts verifies a non-rate-limit agent
// failure aborts the whole call instead of consuming plan attempts.
func TestEngineRun_FatalAgentErrorAborts(t *testing.T) {
	reasoner := agents.NewScriptedReasoner()
	cause := errors.New("schema violation: missing threat_level")
	reasoner.Errs = map[agents.Variant][]error{
		agents.VariantRisk: {&agents.AgentError{Variant: agents.VariantRisk, Err: cause}},
	}
	eng := New(reasoner, testRetryConfig())
	status := NewStatusTracker()

	result, err := eng.Run(context.Background(), calmRequest(), status)

	require.Error(t, err)
	assert.Nil(t, result)
	var agentErr *agents.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, agents.VariantRisk, agentErr.Variant)
	assert.Equal(t, StateError, status.State(StageLevelOne))
}

// TestEngineRun_PhysicsComputedOnce verifies every attempt reasons over the
// same deterministic graph.
func TestEngineRun_PhysicsComputedOnce(t *testing.T) {
	reasoner := agents.NewScriptedReasoner()
	reasoner.RiskQueue = []datatypes.RiskAnalysis{
		{ThreatLevel: datatypes.ThreatElevated, VulnerableTargets: []string{"Cedar Creek"}},
	}
	eng := New(reasoner, testRetryConfig())

	_, err := eng.Run(context.Background(), criticalRequest(), nil)

	require.NoError(t, err)
	require.Len(t, reasoner.RiskCalls, MaxPlanAttempts)
	for i := 1; i < len(reasoner.RiskCalls); i++ {
		assert.Equal(t, reasoner.RiskCalls[0].Graph, reasoner.RiskCalls[i].Graph)
	}
}

// TestEngineRun_PreviousRecommendationSeedsFirstAttempt verifies tick
// continuity: a caller-supplied previous recommendation reaches the first
// recommendation context.
func TestEngineRun_PreviousRecommendationSeedsFirstAttempt(t *testing.T) {
	reasoner := agents.NewScriptedReasoner()
	reasoner.RiskQueue = []datatypes.RiskAnalysis{{ThreatLevel: datatypes.ThreatLow}}
	eng := New(reasoner, testRetryConfig())

	req := calmRequest()
	req.PreviousRecommendation = &datatypes.Recommendation{
		Consideration:   "Hold the ridge line.",
		ConfidenceScore: 80,
	}

	_, err := eng.Run(context.Background(), req, nil)

	require.NoError(t, err)
	require.Len(t, reasoner.RecCalls, 1)
	require.NotNil(t, reasoner.RecCalls[0].Previous)
	assert.Equal(t, "Hold the ridge line.", reasoner.RecCalls[0].Previous.Consideration)
}

// TestEngineRun_HistorySummaryReachesAgents verifies the caller-resolved
// history text flows into both first-stage contexts.
func TestEngineRun_HistorySummaryReachesAgents(t *testing.T) {
	reasoner := agents.NewScriptedReasoner()
	reasoner.RiskQueue = []datatypes.RiskAnalysis{{ThreatLevel: datatypes.ThreatLow}}
	eng := New(reasoner, testRetryConfig())

	req := calmRequest()
	req.HistorySummary = "Similar fires stalled at the river."

	_, err := eng.Run(context.Background(), req, nil)

	require.NoError(t, err)
	require.Len(t, reasoner.BehaviorCalls, 1)
	assert.Equal(t, req.HistorySummary, reasoner.BehaviorCalls[0].HistorySummary)
	require.Len(t, reasoner.RiskCalls, 1)
	assert.Equal(t, req.HistorySummary, reasoner.RiskCalls[0].HistorySummary)
}
