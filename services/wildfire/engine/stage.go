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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// AgentLatencyRecorder is an optional MetricsRecorder extension receiving
// per-call agent latency, including retries spent inside the invoker.
type AgentLatencyRecorder interface {
	RecordAgentLatency(variant string, d time.Duration)
}

func (e *Engine) observeLatency(variant agents.Variant, started time.Time) {
	if rec, ok := e.metrics.(AgentLatencyRecorder); ok {
		rec.RecordAgentLatency(string(variant), time.Since(started))
	}
}

// stageOneResult joins the first parallel fan-out: behavior and risk.
type stageOneResult struct {
	Fire datatypes.FireAnalysis
	Risk datatypes.RiskAnalysis
}

// stageTwoResult joins the second parallel fan-out: notifications and
// recommendation.
type stageTwoResult struct {
	Notifications  datatypes.NotificationSet
	Recommendation datatypes.Recommendation
}

// runStageOne runs the behavior and risk agents concurrently and joins both
// results, or fails fast on the first non-rate-limit failure. The sibling
// call is abandoned best-effort via the group context; no partial result
// escapes.
func (e *Engine) runStageOne(
	ctx context.Context,
	graph datatypes.ProcessedGraph,
	historySummary, feedback string,
) (*stageOneResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	result := &stageOneResult{}

	g.Go(func() error {
		defer e.observeLatency(agents.VariantBehavior, time.Now())
		out, err := agents.Invoke(gctx, e.invoker, agents.VariantBehavior,
			func(ctx context.Context) (*datatypes.FireAnalysis, error) {
				return e.reasoner.AnalyzeBehavior(ctx, agents.BehaviorContext{
					Graph:          graph,
					HistorySummary: historySummary,
				})
			})
		if err != nil {
			return err
		}
		result.Fire = *out
		return nil
	})

	g.Go(func() error {
		defer e.observeLatency(agents.VariantRisk, time.Now())
		out, err := agents.Invoke(gctx, e.invoker, agents.VariantRisk,
			func(ctx context.Context) (*datatypes.RiskAnalysis, error) {
				return e.reasoner.AssessRisk(ctx, agents.RiskContext{
					Graph:          graph,
					HistorySummary: historySummary,
					Feedback:       feedback,
				})
			})
		if err != nil {
			return err
		}
		result.Risk = *out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// runStageTwo runs the notification and recommendation agents concurrently
// against stage one's joined results.
func (e *Engine) runStageTwo(
	ctx context.Context,
	stageOne *stageOneResult,
	feedback string,
	previous *datatypes.Recommendation,
) (*stageTwoResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	result := &stageTwoResult{}

	g.Go(func() error {
		defer e.observeLatency(agents.VariantNotifications, time.Now())
		out, err := agents.Invoke(gctx, e.invoker, agents.VariantNotifications,
			func(ctx context.Context) (*datatypes.NotificationSet, error) {
				return e.reasoner.DraftNotifications(ctx, agents.SynthesisContext{
					Fire: stageOne.Fire,
					Risk: stageOne.Risk,
				})
			})
		if err != nil {
			return err
		}
		result.Notifications = *out
		return nil
	})

	g.Go(func() error {
		defer e.observeLatency(agents.VariantRecommendation, time.Now())
		out, err := agents.Invoke(gctx, e.invoker, agents.VariantRecommendation,
			func(ctx context.Context) (*datatypes.Recommendation, error) {
				return e.reasoner.Recommend(ctx, agents.SynthesisContext{
					Fire:     stageOne.Fire,
					Risk:     stageOne.Risk,
					Feedback: feedback,
					Previous: previous,
				})
			})
		if err != nil {
			return err
		}
		result.Recommendation = *out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
