// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the closed-loop orchestration engine: deterministic
// physics translation, concurrent reasoning stages, guardrail validation, and
// bounded retry with injected feedback.
package engine

import (
	"math"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// =============================================================================
// Physics Constants
// =============================================================================

const (
	// CriticalProximityKm is the town distance below which an exposure is
	// recorded and the baseline threat forced to CRITICAL.
	CriticalProximityKm = 5.0

	// ElevatedProximityKm is the town distance below which the baseline
	// threat is raised to ELEVATED (unless already CRITICAL).
	ElevatedProximityKm = 15.0

	// CriticalVelocityThreshold escalates the baseline to CRITICAL when the
	// effective spread velocity exceeds it, regardless of town proximity.
	CriticalVelocityThreshold = 15.0

	// CriticalWindSpeed and CriticalSlopePercent together form the second
	// unconditional escalation trigger.
	CriticalWindSpeed    = 30.0
	CriticalSlopePercent = 15.0

	// SlopeMultiplierThreshold and SlopeMultiplierBonus accelerate spread on
	// steep terrain.
	SlopeMultiplierThreshold = 20.0
	SlopeMultiplierBonus     = 0.5

	// FuelMultiplierBonus accelerates spread in accelerant fuel types.
	FuelMultiplierBonus = 0.3
)

// accelerantFuels are the vegetation types that raise the velocity
// multiplier. Matching is case-insensitive on the normalized string.
var accelerantFuels = map[string]bool{
	"chaparral": true,
	"brush":     true,
	"timber":    true,
}

// =============================================================================
// Physics Translation
// =============================================================================

// TranslatePhysics derives the deterministic physics snapshot from one
// telemetry tick and its environment and infrastructure context.
//
// # Description
//
// Pure, total function: same inputs always produce the identical
// ProcessedGraph, including rounding. Missing or out-of-range fields are
// default-substituted (step coerced to at least 1); there are no failure
// modes. Classification is monotone: once the baseline threat reaches
// CRITICAL no later rule downgrades it.
//
// # Inputs
//
//   - raw: telemetry snapshot for the current tick.
//   - env: wind and terrain context.
//   - infra: nearby towns, order preserved in the exposure output.
//
// # Outputs
//
//   - datatypes.ProcessedGraph: the immutable physics snapshot.
//
// # Thread Safety
//
// Safe for concurrent use; no shared state.
func TranslatePhysics(
	raw datatypes.RawTelemetry,
	env datatypes.EnvironmentContext,
	infra datatypes.InfrastructureContext,
) datatypes.ProcessedGraph {
	step := raw.Step
	if step < 1 {
		step = 1
	}

	baseVelocity := round2(float64(raw.ActiveCells) / float64(step))

	multiplier := 1.0
	if env.SlopePercent > SlopeMultiplierThreshold {
		multiplier += SlopeMultiplierBonus
	}
	if accelerantFuels[env.NormalizedVegetation()] {
		multiplier += FuelMultiplierBonus
	}

	effectiveVelocity := round2(baseVelocity * multiplier)

	threat := datatypes.ThreatLow
	exposures := make([]datatypes.Exposure, 0, len(infra.Towns))

	for _, town := range infra.Towns {
		switch {
		case town.DistanceKm < CriticalProximityKm:
			exposures = append(exposures, datatypes.Exposure{
				Town:       town.Name,
				DistanceKm: town.DistanceKm,
			})
			threat = datatypes.ThreatCritical
		case town.DistanceKm < ElevatedProximityKm && threat != datatypes.ThreatCritical:
			threat = datatypes.ThreatElevated
		}
	}

	if effectiveVelocity > CriticalVelocityThreshold ||
		(env.WindSpeed > CriticalWindSpeed && env.SlopePercent > CriticalSlopePercent) {
		threat = datatypes.ThreatCritical
	}

	return datatypes.ProcessedGraph{
		RawStats: datatypes.RawTelemetry{
			Step:           step,
			ActiveCells:    raw.ActiveCells,
			DestroyedCells: raw.DestroyedCells,
		},
		Physics: datatypes.ComputedPhysics{
			BaseVelocity:       baseVelocity,
			VelocityMultiplier: multiplier,
			EffectiveVelocity:  effectiveVelocity,
			BaselineThreat:     threat,
			CriticalExposures:  exposures,
		},
	}
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
