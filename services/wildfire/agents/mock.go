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
	"context"
	"sync"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// ScriptedReasoner is a deterministic Reasoner for tests.
//
// Each capability pops from its own queue of scripted responses; when a
// queue empties the last entry repeats. Errors are injectable per variant,
// and every call's input is recorded so tests can assert on injected
// feedback and carried recommendations.
//
// Safe for concurrent use.
type ScriptedReasoner struct {
	mu sync.Mutex

	FireQueue []datatypes.FireAnalysis
	RiskQueue []datatypes.RiskAnalysis
	NotifWith datatypes.NotificationSet
	RecQueue  []datatypes.Recommendation

	// Errs holds a queue of errors per variant, returned before any
	// scripted response is consumed. A nil entry means "succeed".
	Errs map[Variant][]error

	// Recorded inputs, in call order.
	BehaviorCalls []BehaviorContext
	RiskCalls     []RiskContext
	NotifCalls    []SynthesisContext
	RecCalls      []SynthesisContext
}

// NewScriptedReasoner returns a reasoner with a benign default on every
// queue, so a test that only scripts the variant under study still gets
// valid payloads from the rest.
func NewScriptedReasoner() *ScriptedReasoner {
	return &ScriptedReasoner{
		FireQueue: []datatypes.FireAnalysis{{
			BehaviorSummary:    "Wind-driven surface fire.",
			SpreadDirection:    "NE",
			VelocityAssessment: "velocity multiplier nominal",
		}},
		RiskQueue: []datatypes.RiskAnalysis{{
			ThreatLevel: datatypes.ThreatLow,
		}},
		NotifWith: datatypes.NotificationSet{Alerts: []datatypes.NotificationItem{
			{Headline: "Spread update", Explanation: "Fire front advancing. Crews repositioning."},
			{Headline: "Wind advisory", Explanation: "Winds steady. No shift expected."},
			{Headline: "Resource status", Explanation: "Engines staged. Air support on call."},
		}},
	}
}

func (s *ScriptedReasoner) popErr(v Variant) error {
	if len(s.Errs[v]) == 0 {
		return nil
	}
	err := s.Errs[v][0]
	s.Errs[v] = s.Errs[v][1:]
	return err
}

// AnalyzeBehavior implements Reasoner.
func (s *ScriptedReasoner) AnalyzeBehavior(_ context.Context, in BehaviorContext) (*datatypes.FireAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BehaviorCalls = append(s.BehaviorCalls, in)
	if err := s.popErr(VariantBehavior); err != nil {
		return nil, err
	}
	out := s.FireQueue[0]
	if len(s.FireQueue) > 1 {
		s.FireQueue = s.FireQueue[1:]
	}
	return &out, nil
}

// AssessRisk implements Reasoner.
func (s *ScriptedReasoner) AssessRisk(_ context.Context, in RiskContext) (*datatypes.RiskAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RiskCalls = append(s.RiskCalls, in)
	if err := s.popErr(VariantRisk); err != nil {
		return nil, err
	}
	out := s.RiskQueue[0]
	if len(s.RiskQueue) > 1 {
		s.RiskQueue = s.RiskQueue[1:]
	}
	return &out, nil
}

// DraftNotifications implements Reasoner.
func (s *ScriptedReasoner) DraftNotifications(_ context.Context, in SynthesisContext) (*datatypes.NotificationSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NotifCalls = append(s.NotifCalls, in)
	if err := s.popErr(VariantNotifications); err != nil {
		return nil, err
	}
	out := s.NotifWith
	return &out, nil
}

// Recommend implements Reasoner.
func (s *ScriptedReasoner) Recommend(_ context.Context, in SynthesisContext) (*datatypes.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RecCalls = append(s.RecCalls, in)
	if err := s.popErr(VariantRecommendation); err != nil {
		return nil, err
	}
	if len(s.RecQueue) == 0 {
		return &datatypes.Recommendation{
			Consideration:   "Hold containment lines.",
			Rationale:       "Effective velocity within initial attack capability.",
			ConfidenceScore: 70,
		}, nil
	}
	out := s.RecQueue[0]
	if len(s.RecQueue) > 1 {
		s.RecQueue = s.RecQueue[1:]
	}
	return &out, nil
}
