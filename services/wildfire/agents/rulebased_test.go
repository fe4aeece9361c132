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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

func TestRuleBasedAdvisory_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		raw        datatypes.RawTelemetry
		windSpeed  float64
		wantPhrase string
		wantConf   float64
	}{
		{
			name:       "large burned area forces evacuation",
			raw:        datatypes.RawTelemetry{Step: 30, ActiveCells: 20, DestroyedCells: 900},
			windSpeed:  10,
			wantPhrase: "IMMEDIATE EVACUATION",
			wantConf:   0.9,
		},
		{
			name:       "high wind with active front forces evacuation",
			raw:        datatypes.RawTelemetry{Step: 10, ActiveCells: 35, DestroyedCells: 50},
			windSpeed:  25,
			wantPhrase: "IMMEDIATE EVACUATION",
			wantConf:   0.9,
		},
		{
			name:       "moderate growth escalates to type 1",
			raw:        datatypes.RawTelemetry{Step: 10, ActiveCells: 10, DestroyedCells: 350},
			windSpeed:  10,
			wantPhrase: "ESCALATE to Type 1",
			wantConf:   0.75,
		},
		{
			name:       "wind alone escalates to type 1",
			raw:        datatypes.RawTelemetry{Step: 5, ActiveCells: 5, DestroyedCells: 20},
			windSpeed:  20,
			wantPhrase: "ESCALATE to Type 1",
			wantConf:   0.75,
		},
		{
			name:       "expanding perimeter reinforces lines",
			raw:        datatypes.RawTelemetry{Step: 8, ActiveCells: 16, DestroyedCells: 40},
			windSpeed:  10,
			wantPhrase: "Reinforce containment lines",
			wantConf:   0.65,
		},
		{
			name:       "small fire holds initial attack",
			raw:        datatypes.RawTelemetry{Step: 3, ActiveCells: 5, DestroyedCells: 10},
			windSpeed:  8,
			wantPhrase: "Maintain initial attack",
			wantConf:   0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisory := RuleBasedAdvisory(tt.raw, tt.windSpeed, datatypes.WindNorth, AnalogStats{})

			assert.True(t, strings.HasPrefix(advisory.Recommendation, tt.wantPhrase),
				"got recommendation %q", advisory.Recommendation)
			assert.Equal(t, tt.wantConf, advisory.Confidence)
			assert.NotEmpty(t, advisory.Reasoning)
			assert.Positive(t, advisory.TimeToImpactMinutes)
		})
	}
}

func TestRuleBasedAdvisory_AnalogStatsShiftProbability(t *testing.T) {
	raw := datatypes.RawTelemetry{Step: 30, ActiveCells: 40, DestroyedCells: 900}

	low := RuleBasedAdvisory(raw, 30, datatypes.WindEast, AnalogStats{FailureProbability: 0})
	high := RuleBasedAdvisory(raw, 30, datatypes.WindEast, AnalogStats{FailureProbability: 0.6})

	assert.Greater(t, high.EscapeProbability, low.EscapeProbability)
	assert.LessOrEqual(t, high.EscapeProbability, 0.95, "escape probability is capped")
}

func TestRuleBasedAdvisory_Deterministic(t *testing.T) {
	raw := datatypes.RawTelemetry{Step: 12, ActiveCells: 22, DestroyedCells: 130}
	analogs := AnalogStats{FailureProbability: 0.4, AvgAcresBurned: 5200}

	first := RuleBasedAdvisory(raw, 18, datatypes.WindSouth, analogs)
	second := RuleBasedAdvisory(raw, 18, datatypes.WindSouth, analogs)

	assert.Equal(t, first, second)
}

func TestRuleBasedAdvisory_StepCoercion(t *testing.T) {
	raw := datatypes.RawTelemetry{Step: 0, ActiveCells: 5}

	advisory := RuleBasedAdvisory(raw, 5, datatypes.WindWest, AnalogStats{})

	assert.Contains(t, advisory.Reasoning, "5.0 cells/step",
		"step zero must be coerced, not divide by zero")
}
