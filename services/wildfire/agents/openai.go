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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// =============================================================================
// JSON Schemas
// =============================================================================

// Structured-output schemas, strict mode. Keeping them as literals next to
// the adapter makes drift against the datatypes structs easy to spot in
// review.
const (
	fireAnalysisSchema = `{
  "type": "object",
  "properties": {
    "behavior_summary": {"type": "string"},
    "spread_direction": {"type": "string"},
    "spread_velocity_assessment": {"type": "string"}
  },
  "required": ["behavior_summary", "spread_direction", "spread_velocity_assessment"],
  "additionalProperties": false
}`

	riskAnalysisSchema = `{
  "type": "object",
  "properties": {
    "threat_level": {"type": "string", "enum": ["LOW", "ELEVATED", "CRITICAL"]},
    "vulnerable_targets": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["threat_level", "vulnerable_targets"],
  "additionalProperties": false
}`

	notificationSetSchema = `{
  "type": "object",
  "properties": {
    "alerts": {
      "type": "array",
      "minItems": 3,
      "maxItems": 3,
      "items": {
        "type": "object",
        "properties": {
          "headline": {"type": "string"},
          "explanation": {"type": "string"}
        },
        "required": ["headline", "explanation"],
        "additionalProperties": false
      }
    }
  },
  "required": ["alerts"],
  "additionalProperties": false
}`

	recommendationSchema = `{
  "type": "object",
  "properties": {
    "consideration": {"type": "string"},
    "rationale": {"type": "string"},
    "confidence_score": {"type": "integer", "minimum": 0, "maximum": 100}
  },
  "required": ["consideration", "rationale", "confidence_score"],
  "additionalProperties": false
}`
)

// =============================================================================
// OpenAI Reasoner
// =============================================================================

// OpenAIReasoner implements Reasoner against the OpenAI structured-output
// API. One chat completion per capability call; the declared JSON schema is
// enforced server-side and re-checked locally before anything reaches the
// validator.
type OpenAIReasoner struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIReasonerWithClient injects a preconfigured client. Key
// resolution lives with the caller so secrets stay inside the config
// package's locked buffers.
func NewOpenAIReasonerWithClient(client *openai.Client, model string, logger *slog.Logger) *OpenAIReasoner {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIReasoner{client: client, model: model, logger: logger}
}

// AnalyzeBehavior implements Reasoner.
func (r *OpenAIReasoner) AnalyzeBehavior(ctx context.Context, in BehaviorContext) (*datatypes.FireAnalysis, error) {
	graphJSON, err := json.Marshal(in.Graph)
	if err != nil {
		return nil, &AgentError{Variant: VariantBehavior, Err: err}
	}
	user := fmt.Sprintf("PROCESSED GRAPH: %s\nHISTORY: %s", graphJSON, in.HistorySummary)

	var out datatypes.FireAnalysis
	if err := r.complete(ctx, VariantBehavior,
		"You are the Fire Behavior Agent. Rely strictly on the 'computed_physics' provided.",
		user, "fire_analysis", fireAnalysisSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssessRisk implements Reasoner.
func (r *OpenAIReasoner) AssessRisk(ctx context.Context, in RiskContext) (*datatypes.RiskAnalysis, error) {
	graphJSON, err := json.Marshal(in.Graph)
	if err != nil {
		return nil, &AgentError{Variant: VariantRisk, Err: err}
	}
	user := fmt.Sprintf("PROCESSED GRAPH: %s\nHISTORY: %s", graphJSON, in.HistorySummary)
	if in.Feedback != "" {
		user += fmt.Sprintf("\nVALIDATOR FEEDBACK: %s\nYou MUST fix this.", in.Feedback)
	}

	var out datatypes.RiskAnalysis
	if err := r.complete(ctx, VariantRisk,
		"You assess infrastructure threats. Do not contradict the 'baseline_threat'.",
		user, "risk_analysis", riskAnalysisSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DraftNotifications implements Reasoner.
func (r *OpenAIReasoner) DraftNotifications(ctx context.Context, in SynthesisContext) (*datatypes.NotificationSet, error) {
	fireJSON, err := json.Marshal(in.Fire)
	if err != nil {
		return nil, &AgentError{Variant: VariantNotifications, Err: err}
	}
	riskJSON, err := json.Marshal(in.Risk)
	if err != nil {
		return nil, &AgentError{Variant: VariantNotifications, Err: err}
	}
	user := fmt.Sprintf("FIRE: %s\nRISK: %s", fireJSON, riskJSON)

	var out datatypes.NotificationSet
	if err := r.complete(ctx, VariantNotifications,
		"Generate 3 tactical alerts. Explanations MUST be exactly 2 sentences.",
		user, "notification_set", notificationSetSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommend implements Reasoner.
func (r *OpenAIReasoner) Recommend(ctx context.Context, in SynthesisContext) (*datatypes.Recommendation, error) {
	fireJSON, err := json.Marshal(in.Fire)
	if err != nil {
		return nil, &AgentError{Variant: VariantRecommendation, Err: err}
	}
	riskJSON, err := json.Marshal(in.Risk)
	if err != nil {
		return nil, &AgentError{Variant: VariantRecommendation, Err: err}
	}

	turnContext := "Initial assessment."
	if in.Previous != nil {
		prevJSON, err := json.Marshal(in.Previous)
		if err != nil {
			return nil, &AgentError{Variant: VariantRecommendation, Err: err}
		}
		turnContext = fmt.Sprintf("PREVIOUS RECOMMENDATION: %s. Update based on new data.", prevJSON)
	}
	user := fmt.Sprintf("FIRE: %s\nRISK: %s\n\n%s", fireJSON, riskJSON, turnContext)
	if in.Feedback != "" {
		user += fmt.Sprintf("\nURGENT VALIDATOR FEEDBACK: %s\nYou MUST correct these errors in this iteration.", in.Feedback)
	}

	var out datatypes.Recommendation
	if err := r.complete(ctx, VariantRecommendation,
		"Provide the top tactical consideration. You must strictly obey any validator feedback.",
		user, "recommendation", recommendationSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// validatable is implemented by all schema-constrained output types.
type validatable interface {
	Validate() error
}

// complete runs one structured chat completion and decodes the result.
func (r *OpenAIReasoner) complete(
	ctx context.Context,
	variant Variant,
	system, user, schemaName, schema string,
	out any,
) error {
	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: json.RawMessage(schema),
				Strict: true,
			},
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return &AgentError{Variant: variant, RateLimited: isRateLimitErr(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return &AgentError{Variant: variant, Err: fmt.Errorf("provider returned no choices")}
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return &AgentError{Variant: variant, Err: fmt.Errorf("decoding structured output: %w", err)}
	}
	if v, ok := out.(validatable); ok {
		if err := v.Validate(); err != nil {
			return &AgentError{Variant: variant, Err: fmt.Errorf("schema violation: %w", err)}
		}
	}

	r.logger.Debug("agent call complete",
		"variant", variant,
		"finish_reason", resp.Choices[0].FinishReason)
	return nil
}

// isRateLimitErr classifies provider throttling. Typed check first, string
// signature as a fallback for wrapped transport errors.
func isRateLimitErr(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}
