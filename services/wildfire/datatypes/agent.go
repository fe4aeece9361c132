// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Schema-constrained reasoning agent outputs. Agents return these structures
// or fail with a typed error; a value that parses but violates the schema
// bounds here never reaches the guardrail validator.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// NotificationCount is the required number of alerts in a NotificationSet.
const NotificationCount = 3

// agentValidate is the shared validator for agent output datatypes.
var agentValidate = validator.New()

// =============================================================================
// Stage 1 Outputs
// =============================================================================

// FireAnalysis is the behavior agent's read of the current spread dynamics.
type FireAnalysis struct {
	// BehaviorSummary covers wind, slope, vegetation, and spread behavior.
	BehaviorSummary string `json:"behavior_summary" validate:"required"`

	// SpreadDirection is the dominant direction of spread.
	SpreadDirection string `json:"spread_direction" validate:"required"`

	// VelocityAssessment references the computed velocity multiplier.
	VelocityAssessment string `json:"spread_velocity_assessment" validate:"required"`
}

// Validate checks the analysis against its schema bounds.
func (f FireAnalysis) Validate() error {
	return agentValidate.Struct(f)
}

// RiskAnalysis is the risk agent's infrastructure threat assessment.
type RiskAnalysis struct {
	// ThreatLevel must be one of LOW, ELEVATED, CRITICAL.
	ThreatLevel ThreatLevel `json:"threat_level" validate:"required"`

	// VulnerableTargets names specific towns or fire lines at risk.
	// Set-like: order is preserved, duplicates are not meaningful.
	VulnerableTargets []string `json:"vulnerable_targets"`
}

// Validate checks schema bounds, including the threat level enum.
func (r RiskAnalysis) Validate() error {
	if err := agentValidate.Struct(r); err != nil {
		return err
	}
	if !r.ThreatLevel.Valid() {
		return fmt.Errorf("invalid threat_level %q", r.ThreatLevel)
	}
	return nil
}

// Targets reports whether name appears in VulnerableTargets.
func (r RiskAnalysis) Targets(name string) bool {
	for _, t := range r.VulnerableTargets {
		if t == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Stage 2 Outputs
// =============================================================================

// NotificationItem is one short factual alert for the operator feed.
type NotificationItem struct {
	Headline string `json:"headline" validate:"required"`

	// Explanation is a short factual statement expanding the headline.
	Explanation string `json:"explanation" validate:"required"`
}

// NotificationSet is the notification agent's output: exactly three alerts.
type NotificationSet struct {
	Alerts []NotificationItem `json:"alerts" validate:"len=3,dive"`
}

// Validate enforces the exact-three cardinality and per-item bounds.
func (n NotificationSet) Validate() error {
	return agentValidate.Struct(n)
}

// Recommendation is the tactical recommendation for command.
type Recommendation struct {
	// Consideration is the single top tactical action.
	Consideration string `json:"consideration" validate:"required"`

	// Rationale explains the action citing explicit physical variables.
	Rationale string `json:"rationale" validate:"required"`

	// ConfidenceScore is plan viability in [0,100].
	ConfidenceScore int `json:"confidence_score" validate:"min=0,max=100"`
}

// Validate checks schema bounds on the recommendation.
func (r Recommendation) Validate() error {
	return agentValidate.Struct(r)
}

// =============================================================================
// Engine Result
// =============================================================================

// AnalysisResult is what one orchestration run hands back: either a validated
// plan or the fixed fallback payload your delivery layer can always render.
type AnalysisResult struct {
	Notifications  []NotificationItem `json:"notifications"`
	Recommendation Recommendation     `json:"recommendation"`
	Physics        ComputedPhysics    `json:"computed_physics"`

	// Fallback is true when validation never passed and the degraded payload
	// was returned instead.
	Fallback bool `json:"fallback"`

	// Attempts is the number of full plan attempts consumed, 1-based.
	Attempts int `json:"attempts"`
}
