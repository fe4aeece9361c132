// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"fmt"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// TacticalAdvisory is the rule-based recommender's output: a fully
// deterministic tactical read usable as a degraded-mode answer or a test
// oracle against the agent-based engine.
type TacticalAdvisory struct {
	EscapeProbability   float64 `json:"escape_probability"`
	TimeToImpactMinutes int     `json:"time_to_impact_minutes"`
	Recommendation      string  `json:"recommendation"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
}

// AnalogStats summarizes historical analog fires for the rule-based path.
type AnalogStats struct {
	// FailureProbability is the containment-failure rate among analogs, 0-1.
	FailureProbability float64

	// AvgAcresBurned is the mean final size among analogs.
	AvgAcresBurned float64
}

// RuleBasedAdvisory computes a tactical advisory from telemetry, wind, and
// historical analog statistics.
//
// Pure function with four posture tiers keyed on burned area, active cells,
// and wind. No agent involvement: this is the deterministic alternative to
// the reasoning pipeline, kept as a fallback and comparison oracle.
func RuleBasedAdvisory(
	raw datatypes.RawTelemetry,
	windSpeed float64,
	windDirection datatypes.WindDirection,
	analogs AnalogStats,
) TacticalAdvisory {
	step := raw.Step
	if step < 1 {
		step = 1
	}
	burning := raw.ActiveCells
	burned := raw.DestroyedCells
	velocity := float64(burning) / float64(step)

	switch {
	case burned > 800 || (windSpeed >= 25 && burning > 30):
		return TacticalAdvisory{
			EscapeProbability:   minFloat(0.95, 0.7+analogs.FailureProbability*0.3),
			TimeToImpactMinutes: maxInt(10, 45-step),
			Confidence:          0.9,
			Recommendation: "IMMEDIATE EVACUATION. Fire has exceeded containment capacity. " +
				"Deploy all available air resources to protect structures. " +
				"Establish evacuation corridors on north and west flanks.",
			Reasoning: fmt.Sprintf(
				"Fire has burned %d cells with %d actively burning. "+
					"Spread velocity of %.1f cells/step exceeds safe thresholds. "+
					"Wind speed at %.0f mph is driving rapid expansion. "+
					"Historical analogs show %.0f%% containment failure rate under similar conditions. "+
					"Probability of escape is critical. Recommend full evacuation posture.",
				burned, burning, velocity, windSpeed, analogs.FailureProbability*100),
		}
	case burned > 300 || windSpeed >= 20:
		return TacticalAdvisory{
			EscapeProbability:   minFloat(0.8, 0.4+analogs.FailureProbability*0.3+(windSpeed/50.0)*0.2),
			TimeToImpactMinutes: maxInt(20, 90-step*2),
			Confidence:          0.75,
			Recommendation: "ESCALATE to Type 1 incident. Request additional strike teams. " +
				"Pre-position evacuation assets. Establish safety zones on south flank. " +
				"Consider tactical firing operations on northeast perimeter.",
			Reasoning: fmt.Sprintf(
				"Fire is growing aggressively with %d active cells and %d total burned. "+
					"Spread velocity at %.1f cells/step indicates acceleration. "+
					"Wind conditions (%s at %.0f mph) are unfavorable for containment. "+
					"Analog fires averaged %.0f acres. "+
					"Situation trending toward loss of containment.",
				burning, burned, velocity, windDirection, windSpeed, analogs.AvgAcresBurned),
		}
	case burned > 100 || burning > 15:
		return TacticalAdvisory{
			EscapeProbability:   0.3 + analogs.FailureProbability*0.2,
			TimeToImpactMinutes: maxInt(40, 120-step*2),
			Confidence:          0.65,
			Recommendation: "Reinforce containment lines on downwind flank. " +
				"Deploy additional hand crews to construct fireline. " +
				"Monitor for spot fires beyond perimeter. Maintain current suppression posture.",
			Reasoning: fmt.Sprintf(
				"Fire perimeter expanding with %d burning cells. "+
					"Total area affected: %d cells. "+
					"Current wind (%s at %.0f mph) is pushing fire but within manageable parameters. "+
					"Historical failure probability at %.0f%%. "+
					"Containment is achievable if resources are applied promptly.",
				burning, burned, windDirection, windSpeed, analogs.FailureProbability*100),
		}
	default:
		return TacticalAdvisory{
			EscapeProbability:   maxFloat(0.05, 0.1+analogs.FailureProbability*0.1),
			TimeToImpactMinutes: 180,
			Confidence:          0.8,
			Recommendation: "Maintain initial attack posture. Continue direct attack on head of fire. " +
				"Monitor wind conditions for potential shift. " +
				"Keep one engine company in reserve for spot fire response.",
			Reasoning: fmt.Sprintf(
				"Fire is in early stages with %d active cells and %d burned. "+
					"Spread velocity of %.1f cells/step is within initial attack capability. "+
					"Wind conditions are moderate (%s at %.0f mph). "+
					"No immediate threat to structures. Standard initial attack protocol is appropriate.",
				burning, burned, velocity, windDirection, windSpeed),
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
