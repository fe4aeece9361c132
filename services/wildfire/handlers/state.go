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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
	"github.com/AleutianAI/WildfireOS/services/wildfire/simulation"
)

// Tick interval bounds for PUT simulation/speed, in seconds.
const (
	MinTickSeconds = 0.2
	MaxTickSeconds = 10.0
)

// TickController exposes the live tick interval of the simulation loop.
type TickController interface {
	Interval() time.Duration
	SetInterval(d time.Duration)
}

// HandleHealthCheck reports service liveness.
func HandleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "wildfire"})
	}
}

// HandleGetState returns the current simulation state: wind, grid size,
// step counter, and tick interval.
func HandleGetState(sim *simulation.FireSimulation, ticker TickController) gin.HandlerFunc {
	return func(c *gin.Context) {
		dir, speed := sim.Wind()
		snap := sim.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"wind": gin.H{
				"direction": dir,
				"speed":     speed,
			},
			"grid_size":        simulation.GridSize,
			"step":             snap.Step,
			"interval_seconds": ticker.Interval().Seconds(),
		})
	}
}

// SpeedRequest is the body of POST /v1/simulation/speed.
type SpeedRequest struct {
	IntervalSeconds float64 `json:"interval_seconds" binding:"required"`
}

// HandleSetSpeed changes the tick interval, clamped to
// [MinTickSeconds, MaxTickSeconds].
func HandleSetSpeed(ticker TickController) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SpeedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		seconds := req.IntervalSeconds
		if seconds < MinTickSeconds {
			seconds = MinTickSeconds
		}
		if seconds > MaxTickSeconds {
			seconds = MaxTickSeconds
		}
		ticker.SetInterval(time.Duration(seconds * float64(time.Second)))
		c.JSON(http.StatusOK, gin.H{"interval_seconds": seconds})
	}
}

// WindShiftRequest is the body of POST /v1/simulation/wind-shift.
type WindShiftRequest struct {
	Direction datatypes.WindDirection `json:"direction" binding:"required"`
	Speed     float64                 `json:"speed"`
}

// HandleWindShift applies a wind change to the simulation and announces it
// to connected clients.
func HandleWindShift(sim *simulation.FireSimulation, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WindShiftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if !req.Direction.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown wind direction: " + string(req.Direction)})
			return
		}
		if req.Speed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "speed must be non-negative"})
			return
		}

		sim.SetWind(req.Direction, req.Speed)
		dir, speed := sim.Wind()
		payload := gin.H{
			"action": "wind_shift",
			"wind": gin.H{
				"direction": dir,
				"speed":     speed,
			},
		}
		if hub != nil {
			hub.Broadcast(payload)
		}
		c.JSON(http.StatusOK, payload)
	}
}
