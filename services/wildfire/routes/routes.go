// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/WildfireOS/services/wildfire/engine"
	"github.com/AleutianAI/WildfireOS/services/wildfire/handlers"
	"github.com/AleutianAI/WildfireOS/services/wildfire/history"
	"github.com/AleutianAI/WildfireOS/services/wildfire/observability"
	"github.com/AleutianAI/WildfireOS/services/wildfire/simulation"
	"github.com/AleutianAI/WildfireOS/services/wildfire/store"
)

// Deps carries everything the route handlers need. Hub, Feed, Metrics,
// and History may be nil; the affected handlers degrade rather than fail.
type Deps struct {
	Engine  *engine.Engine
	History history.Provider
	Feed    *store.NotificationStore
	Hub     *handlers.Hub
	Sim     *simulation.FireSimulation
	Ticker  handlers.TickController
	Metrics *observability.PipelineMetrics
	Logger  *slog.Logger
}

// RequestID tags every request with a correlation id, minting one when the
// caller did not send X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(RequestID())

	router.GET("/health", handlers.HandleHealthCheck())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", handlers.HandleAnalyze(deps.Engine, deps.History, deps.Feed, deps.Hub, deps.Logger))
		v1.GET("/ws", handlers.HandleLiveWebSocket(deps.Hub, activeGauge(deps.Metrics)))
		v1.GET("/state", handlers.HandleGetState(deps.Sim, deps.Ticker))

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", handlers.HandleListNotifications(deps.Feed))
			notifications.DELETE("", handlers.HandleClearNotifications(deps.Feed))
		}

		recommendations := v1.Group("/recommendations")
		{
			recommendations.GET("", handlers.HandleListRecommendations(deps.Feed))
			recommendations.GET("/latest", handlers.HandleLatestRecommendation(deps.Feed))
		}

		sim := v1.Group("/simulation")
		{
			sim.POST("/speed", handlers.HandleSetSpeed(deps.Ticker))
			sim.POST("/wind-shift", handlers.HandleWindShift(deps.Sim, deps.Hub))
		}
	}
}

func activeGauge(m *observability.PipelineMetrics) prometheus.Gauge {
	if m == nil {
		return nil
	}
	return m.ActiveWebsockets
}
