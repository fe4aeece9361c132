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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

func criticalGraph(exposures ...datatypes.Exposure) datatypes.ProcessedGraph {
	return datatypes.ProcessedGraph{
		Physics: datatypes.ComputedPhysics{
			BaselineThreat:    datatypes.ThreatCritical,
			CriticalExposures: exposures,
		},
	}
}

// TestValidateReasoning_Accepts verifies the empty-violation path for a
// compliant plan.
func TestValidateReasoning_Accepts(t *testing.T) {
	graph := criticalGraph(datatypes.Exposure{Town: "Bear Valley", DistanceKm: 3.2})
	risk := datatypes.RiskAnalysis{
		ThreatLevel:       datatypes.ThreatCritical,
		VulnerableTargets: []string{"Bear Valley", "Highway 12"},
	}

	violations := ValidateReasoning(graph, risk, datatypes.Recommendation{})

	assert.Empty(t, violations)
}

// TestValidateReasoning_ThreatDowngrade verifies R1 fires with the exact
// escalation message and the agent's own level embedded.
func TestValidateReasoning_ThreatDowngrade(t *testing.T) {
	graph := criticalGraph()
	risk := datatypes.RiskAnalysis{ThreatLevel: datatypes.ThreatElevated}

	violations := ValidateReasoning(graph, risk, datatypes.Recommendation{})

	require.Len(t, violations, 1)
	assert.Equal(t,
		"Physics Violation: Deterministic math calculates a CRITICAL threat but you output 'ELEVATED'. You MUST escalate.",
		violations[0])
}

// TestValidateReasoning_MissingExposureTown verifies R2 fires only when no
// exposed town appears in the vulnerable targets.
func TestValidateReasoning_MissingExposureTown(t *testing.T) {
	graph := criticalGraph(
		datatypes.Exposure{Town: "Bear Valley", DistanceKm: 3.2},
		datatypes.Exposure{Town: "Hawk Peak", DistanceKm: 4.1},
	)

	t.Run("no town mentioned", func(t *testing.T) {
		risk := datatypes.RiskAnalysis{
			ThreatLevel:       datatypes.ThreatCritical,
			VulnerableTargets: []string{"Cedar Creek"},
		}

		violations := ValidateReasoning(graph, risk, datatypes.Recommendation{})

		require.Len(t, violations, 1)
		assert.Equal(t,
			"Logic Violation: You failed to mention critical exposure town(s) in your vulnerable targets.",
			violations[0])
	})

	t.Run("one town suffices", func(t *testing.T) {
		risk := datatypes.RiskAnalysis{
			ThreatLevel:       datatypes.ThreatCritical,
			VulnerableTargets: []string{"Hawk Peak"},
		}

		assert.Empty(t, ValidateReasoning(graph, risk, datatypes.Recommendation{}))
	})
}

// TestValidateReasoning_CollectsAllViolations verifies rules do not
// short-circuit: a downgraded threat that also omits exposure towns yields
// both violations in rule order.
func TestValidateReasoning_CollectsAllViolations(t *testing.T) {
	graph := criticalGraph(datatypes.Exposure{Town: "Bear Valley", DistanceKm: 2.0})
	risk := datatypes.RiskAnalysis{ThreatLevel: datatypes.ThreatLow}

	violations := ValidateReasoning(graph, risk, datatypes.Recommendation{})

	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "Physics Violation")
	assert.Contains(t, violations[1], "Logic Violation")
}

// TestValidateReasoning_NonCriticalBaseline verifies neither rule applies
// when the deterministic baseline is below CRITICAL.
func TestValidateReasoning_NonCriticalBaseline(t *testing.T) {
	graph := datatypes.ProcessedGraph{
		Physics: datatypes.ComputedPhysics{BaselineThreat: datatypes.ThreatElevated},
	}
	risk := datatypes.RiskAnalysis{ThreatLevel: datatypes.ThreatLow}

	assert.Empty(t, ValidateReasoning(graph, risk, datatypes.Recommendation{}))
}
