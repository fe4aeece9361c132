// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Deterministic physics types. The ProcessedGraph is the ground truth every
// agent output is validated against; it is computed once per request and
// never mutated afterward.
package datatypes

import "fmt"

// =============================================================================
// Threat Levels
// =============================================================================

// ThreatLevel is the deterministic baseline threat classification.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "LOW"
	ThreatElevated ThreatLevel = "ELEVATED"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// Valid reports whether the level is one of the three defined values.
func (t ThreatLevel) Valid() bool {
	switch t {
	case ThreatLow, ThreatElevated, ThreatCritical:
		return true
	default:
		return false
	}
}

// =============================================================================
// Processed Graph
// =============================================================================

// Exposure records one town inside the critical proximity band.
//
// The town name is carried as a structured field rather than being derived
// from formatted text, so downstream matching never depends on sentence
// layout.
type Exposure struct {
	// Town is the exposed town's name.
	Town string `json:"town"`

	// DistanceKm is how far the town is from the fire perimeter.
	DistanceKm float64 `json:"distance_km"`
}

// String renders the exposure for operator-facing output.
func (e Exposure) String() string {
	return fmt.Sprintf("%s is %.1fkm away.", e.Town, e.DistanceKm)
}

// ComputedPhysics holds the deterministic spread metrics derived from one
// telemetry snapshot.
type ComputedPhysics struct {
	// BaseVelocity is active cells per step, rounded to 2 decimals.
	BaseVelocity float64 `json:"base_velocity"`

	// VelocityMultiplier aggregates slope and fuel acceleration factors.
	VelocityMultiplier float64 `json:"velocity_multiplier"`

	// EffectiveVelocity is BaseVelocity * VelocityMultiplier, rounded to
	// 2 decimals.
	EffectiveVelocity float64 `json:"effective_velocity"`

	// BaselineThreat is the deterministic classification. Once CRITICAL it is
	// never downgraded within one computation.
	BaselineThreat ThreatLevel `json:"baseline_threat"`

	// CriticalExposures lists towns closer than the critical proximity band,
	// in infrastructure order.
	CriticalExposures []Exposure `json:"critical_exposures"`
}

// ProcessedGraph is the immutable physics snapshot for one request: the raw
// telemetry echo plus the derived metrics.
type ProcessedGraph struct {
	RawStats RawTelemetry    `json:"raw_stats"`
	Physics  ComputedPhysics `json:"computed_physics"`
}
