// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/WildfireOS/pkg/validation"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
	"github.com/AleutianAI/WildfireOS/services/wildfire/engine"
	"github.com/AleutianAI/WildfireOS/services/wildfire/history"
	"github.com/AleutianAI/WildfireOS/services/wildfire/store"
)

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	LiveGraph          datatypes.RawTelemetry          `json:"live_graph"`
	EnvironmentData    datatypes.EnvironmentContext    `json:"environment_data"`
	InfrastructureData datatypes.InfrastructureContext `json:"infrastructure_data"`

	// PreviousRecommendation seeds the first attempt with the plan the
	// operator last saw. Optional.
	PreviousRecommendation *datatypes.Recommendation `json:"previous_recommendation,omitempty"`

	// TimeLabel is a display timestamp carried through to stored records.
	TimeLabel string `json:"time_label,omitempty"`
}

// AnalyzeResponse is the body returned by POST /v1/analyze.
type AnalyzeResponse struct {
	Notifications   []datatypes.NotificationItem `json:"notifications"`
	Recommendation  datatypes.Recommendation     `json:"recommendation"`
	ComputedPhysics datatypes.ComputedPhysics    `json:"computed_physics"`
	HistorySummary  string                       `json:"history_summary"`
	Fallback        bool                         `json:"fallback"`
	Attempts        int                          `json:"attempts"`
}

// HandleAnalyze runs one full orchestration pass over the posted snapshot.
//
// # Description
//
// Resolves historical context first (a history failure degrades to the
// fixed fallback summary, never a request failure), runs the engine, then
// persists the accepted notifications and recommendation. Stage
// transitions stream to the hub as status_update frames while the pass
// runs. The store and hub may be nil; persistence and streaming are then
// skipped.
func HandleAnalyze(
	eng *engine.Engine,
	provider history.Provider,
	feed *store.NotificationStore,
	hub *Hub,
	logger *slog.Logger,
) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.LiveGraph.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid live_graph: " + err.Error()})
			return
		}
		if err := req.EnvironmentData.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid environment_data: " + err.Error()})
			return
		}
		if err := req.InfrastructureData.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid infrastructure_data: " + err.Error()})
			return
		}
		names := make([]string, 0, len(req.InfrastructureData.Towns))
		for _, town := range req.InfrastructureData.Towns {
			names = append(names, town.Name)
		}
		if err := validation.ValidateTownNames(names); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid infrastructure_data: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		summary := history.Resolve(ctx, provider, history.QueryFor(req.EnvironmentData), logger)

		status := engine.NewStatusTracker()
		if hub != nil {
			updates := status.Subscribe()
			go func() {
				for snap := range updates {
					hub.Broadcast(gin.H{"action": "status_update", "stages": snap})
				}
			}()
		}

		result, err := eng.Run(ctx, engine.Request{
			Telemetry:              req.LiveGraph,
			Environment:            req.EnvironmentData,
			Infrastructure:         req.InfrastructureData,
			HistorySummary:         summary,
			PreviousRecommendation: req.PreviousRecommendation,
		}, status)
		if err != nil {
			logger.Error("orchestration pass failed", "error", err, "step", req.LiveGraph.Step)
			c.JSON(http.StatusBadGateway, gin.H{"error": "analysis failed: " + err.Error()})
			return
		}

		if feed != nil {
			meta := store.TickMeta{
				Timestamp: time.Now().UTC(),
				TimeLabel: req.TimeLabel,
				DataStep:  req.LiveGraph.Step,
			}
			source := "agent"
			if result.Fallback {
				source = "system"
			}
			if _, err := feed.AppendNotifications(result.Notifications, source, meta); err != nil {
				logger.Error("failed to persist notifications", "error", err)
			}
			rec := store.StoredRecommendation{
				Recommendation: result.Recommendation,
				Timestamp:      meta.Timestamp,
				TimeLabel:      meta.TimeLabel,
				DataStep:       meta.DataStep,
				Fallback:       result.Fallback,
			}
			if err := feed.SaveRecommendation(rec); err != nil {
				logger.Error("failed to persist recommendation", "error", err)
			}
		}

		if hub != nil {
			hub.Broadcast(gin.H{
				"action":          "analysis_complete",
				"recommendation":  result.Recommendation,
				"notifications":   result.Notifications,
				"history_summary": summary,
				"fallback":        result.Fallback,
			})
		}

		c.JSON(http.StatusOK, AnalyzeResponse{
			Notifications:   result.Notifications,
			Recommendation:  result.Recommendation,
			ComputedPhysics: result.Physics,
			HistorySummary:  summary,
			Fallback:        result.Fallback,
			Attempts:        result.Attempts,
		})
	}
}
