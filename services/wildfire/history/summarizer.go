// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// analogCount is how many analog incidents feed one summary.
const analogCount = 3

const summarizerPrompt = `You are a wildfire historical analyst. Given current fire conditions and the most similar recorded incidents, write a summary of exactly three sentences: one on how comparable fires behaved, one on what decided their outcomes, and one actionable caution for the current incident. Cite incident names. No preamble.

CURRENT CONDITIONS:
- Wind: %.0f mph
- Humidity: %.0f%%
- Slope: %.0f%%
- Fuel index: %.0f of 4

MOST SIMILAR RECORDED INCIDENTS:
%s`

// LLMSummarizer is a Provider that narrates nearest-analog incidents
// through a language model.
//
// # Description
//
// The analog search itself stays deterministic: the index (or an external
// store) picks the incidents, and the model only narrates them. A model
// failure surfaces as an error so the caller substitutes FallbackSummary;
// the summarizer never invents analogs.
//
// # Thread Safety
//
// Safe for concurrent use when the underlying model client is.
type LLMSummarizer struct {
	model  llms.Model
	source Source
	logger *slog.Logger
}

// NewLLMSummarizer builds a summarizer over the given model and analog
// source. A nil source uses the built-in incident set.
func NewLLMSummarizer(model llms.Model, source Source, logger *slog.Logger) *LLMSummarizer {
	if source == nil {
		source = NewAnalogIndex(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSummarizer{model: model, source: source, logger: logger}
}

// Summary implements Provider.
func (s *LLMSummarizer) Summary(ctx context.Context, q Query) (string, error) {
	analogs, err := s.source.Nearest(ctx, q, analogCount)
	if err != nil {
		return "", fmt.Errorf("analog lookup failed: %w", err)
	}
	if len(analogs) == 0 {
		return "", fmt.Errorf("no analog incidents available")
	}

	prompt := fmt.Sprintf(summarizerPrompt,
		q.WindSpeed, q.Humidity, q.SlopePercent, q.FuelIndex, Describe(analogs))

	out, err := llms.GenerateFromSinglePrompt(ctx, s.model, prompt,
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(256),
	)
	if err != nil {
		return "", fmt.Errorf("history summarization failed: %w", err)
	}

	summary := strings.TrimSpace(out)
	if summary == "" {
		return "", fmt.Errorf("history summarization returned empty output")
	}
	s.logger.Debug("historical summary generated",
		"analogs", len(analogs),
		"chars", len(summary))
	return summary, nil
}

// StaticProvider is a Provider over an analog source alone: no model, just
// a templated digest of the nearest incidents. Used when no LLM endpoint
// is configured.
type StaticProvider struct {
	source Source
}

// NewStaticProvider builds a model-free provider. A nil source uses the
// built-in incident set.
func NewStaticProvider(source Source) *StaticProvider {
	if source == nil {
		source = NewAnalogIndex(nil)
	}
	return &StaticProvider{source: source}
}

// Summary implements Provider.
func (p *StaticProvider) Summary(ctx context.Context, q Query) (string, error) {
	analogs, err := p.source.Nearest(ctx, q, analogCount)
	if err != nil {
		return "", fmt.Errorf("analog lookup failed: %w", err)
	}
	if len(analogs) == 0 {
		return "", fmt.Errorf("no analog incidents available")
	}
	stats := Stats(analogs)
	names := make([]string, 0, len(analogs))
	for _, a := range analogs {
		names = append(names, fmt.Sprintf("%s (%d)", a.Fire.Name, a.Fire.Year))
	}
	return fmt.Sprintf(
		"Under comparable conditions, the closest recorded incidents were %s. "+
			"Those fires escaped containment %.0f%% of the time and averaged %.0f acres burned. "+
			"Plan suppression against the worst of these analogs, not the mean.",
		strings.Join(names, ", "), stats.FailureProbability*100, stats.AvgAcresBurned), nil
}
