// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the wildfire service.
//
// This file contains the telemetry and context types handed to the
// orchestration engine. Telemetry snapshots are produced once per simulation
// tick and are treated as immutable by everything downstream.
package datatypes

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxTowns bounds the infrastructure list on a single request.
	MaxTowns = 64

	// MaxHistorySummaryBytes bounds the history summary passed to agents.
	MaxHistorySummaryBytes = 16 * 1024 // 16KB
)

// telemetryValidate is the shared validator for telemetry datatypes.
var telemetryValidate = validator.New()

// =============================================================================
// Telemetry
// =============================================================================

// RawTelemetry is one snapshot of the fire grid, produced once per tick by
// the simulator. Immutable once handed to the engine.
type RawTelemetry struct {
	// Step is the simulation tick, 1-based. Values below 1 are coerced to 1
	// by the physics translation.
	Step int `json:"step" validate:"min=0"`

	// ActiveCells is the number of currently burning cells.
	ActiveCells int `json:"active_cells" validate:"min=0"`

	// DestroyedCells is the cumulative number of burned-out cells.
	DestroyedCells int `json:"destroyed_cells" validate:"min=0"`
}

// Validate checks field bounds on the snapshot.
func (t RawTelemetry) Validate() error {
	return telemetryValidate.Struct(t)
}

// =============================================================================
// Environment
// =============================================================================

// WindDirection is a compass direction for the prevailing wind.
type WindDirection string

const (
	WindNorth WindDirection = "N"
	WindSouth WindDirection = "S"
	WindEast  WindDirection = "E"
	WindWest  WindDirection = "W"
)

// Valid reports whether the direction is one of the four compass values.
func (d WindDirection) Valid() bool {
	switch d {
	case WindNorth, WindSouth, WindEast, WindWest:
		return true
	default:
		return false
	}
}

// EnvironmentContext describes wind and terrain at the time of a request.
type EnvironmentContext struct {
	// WindSpeed is the sustained wind speed in mph.
	WindSpeed float64 `json:"wind_speed" validate:"min=0"`

	// WindDirection is the compass direction the wind blows toward.
	WindDirection WindDirection `json:"wind_direction"`

	// Humidity is relative humidity in percent.
	Humidity float64 `json:"humidity" validate:"min=0,max=100"`

	// SlopePercent is the terrain slope at the fire head.
	SlopePercent float64 `json:"slope_percent"`

	// Vegetation is the dominant fuel type (free text, matched
	// case-insensitively against known accelerant fuels).
	Vegetation string `json:"vegetation"`
}

// Validate checks field bounds on the environment context.
func (e EnvironmentContext) Validate() error {
	return telemetryValidate.Struct(e)
}

// NormalizedVegetation returns the vegetation string lowered and trimmed for
// fuel-type matching.
func (e EnvironmentContext) NormalizedVegetation() string {
	return strings.ToLower(strings.TrimSpace(e.Vegetation))
}

// =============================================================================
// Infrastructure
// =============================================================================

// Town is one populated place near the fire.
type Town struct {
	Name string `json:"name" validate:"required"`

	// DistanceKm is the distance from the fire perimeter in kilometers.
	DistanceKm float64 `json:"distance_km" validate:"min=0"`
}

// InfrastructureContext lists nearby infrastructure, ordered by the caller.
// Order is preserved through physics translation so exposure output is
// deterministic.
type InfrastructureContext struct {
	Towns []Town `json:"towns" validate:"max=64,dive"`
}

// Validate checks the towns list and each entry.
func (i InfrastructureContext) Validate() error {
	return telemetryValidate.Struct(i)
}
