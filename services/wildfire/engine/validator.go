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
	"fmt"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// ValidateReasoning checks agent output against the deterministic physics.
//
// # Description
//
// Pure function, no I/O. Rules are evaluated independently and all
// violations are collected; there is no short-circuit. An empty result
// means the plan is accepted.
//
// Rules:
//
//   - R1: a CRITICAL deterministic baseline must not be downgraded by the
//     risk analysis.
//   - R2: when critical exposures exist, at least one exposed town must
//     appear in the risk analysis's vulnerable targets.
//
// # Inputs
//
//   - graph: the deterministic physics snapshot for this request.
//   - risk: the risk agent's output under validation.
//   - rec: the recommendation under validation (reserved for future rules;
//     carried so the signature covers the full plan).
//
// # Outputs
//
//   - []string: ordered human-readable violation descriptions, empty on
//     acceptance.
//
// # Thread Safety
//
// Safe for concurrent use; no shared state.
func ValidateReasoning(
	graph datatypes.ProcessedGraph,
	risk datatypes.RiskAnalysis,
	rec datatypes.Recommendation,
) []string {
	var violations []string

	if graph.Physics.BaselineThreat == datatypes.ThreatCritical &&
		risk.ThreatLevel != datatypes.ThreatCritical {
		violations = append(violations, fmt.Sprintf(
			"Physics Violation: Deterministic math calculates a CRITICAL threat but you output '%s'. You MUST escalate.",
			risk.ThreatLevel))
	}

	if len(graph.Physics.CriticalExposures) > 0 {
		mentioned := false
		for _, exposure := range graph.Physics.CriticalExposures {
			if risk.Targets(exposure.Town) {
				mentioned = true
				break
			}
		}
		if !mentioned {
			violations = append(violations,
				"Logic Violation: You failed to mention critical exposure town(s) in your vulnerable targets.")
		}
	}

	return violations
}
