// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history resolves historical fire context for the reasoning
// pipeline: given current conditions, find analog incidents and produce a
// short summary the agents can cite. Providers are best-effort; a failure
// degrades to a fixed fallback sentence rather than blocking orchestration.
package history

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// FallbackSummary is returned whenever no provider can produce a summary.
// The engine treats history as advisory, so this text must stand alone.
const FallbackSummary = "No reliable historical analogs were found in the available database. " +
	"Treat this incident as novel and prioritize real-time observations. " +
	"Monitor nearby infrastructure using deterministic proximity checks."

// Query describes the current conditions used to match analog fires.
type Query struct {
	// WindSpeed is sustained wind in mph.
	WindSpeed float64 `json:"wind_speed"`

	// Humidity is relative humidity in percent.
	Humidity float64 `json:"humidity"`

	// SlopePercent is terrain slope at the fire head.
	SlopePercent float64 `json:"slope_percent"`

	// FuelIndex ranks fuel volatility 0 (bare) through 4 (heavy timber).
	FuelIndex float64 `json:"fuel_index"`
}

// Normalization bounds for the feature vector. Chosen so each feature lands
// in [0,1] across the recorded incident range.
const (
	windScale     = 45.0
	humidityScale = 60.0
	slopeScale    = 40.0
	fuelScale     = 4.0
)

// Vector returns the normalized feature vector used for analog matching.
func (q Query) Vector() []float32 {
	return []float32{
		float32(q.WindSpeed / windScale),
		float32(q.Humidity / humidityScale),
		float32(q.SlopePercent / slopeScale),
		float32(q.FuelIndex / fuelScale),
	}
}

// fuelIndexByVegetation ranks known fuel types; unknown fuels rank 1.
var fuelIndexByVegetation = map[string]float64{
	"bare":      0,
	"grass":     1,
	"brush":     2,
	"chaparral": 3,
	"timber":    4,
}

// FuelIndexFor maps a vegetation description to the fuel volatility index.
func FuelIndexFor(vegetation datatypes.EnvironmentContext) float64 {
	if idx, ok := fuelIndexByVegetation[vegetation.NormalizedVegetation()]; ok {
		return idx
	}
	return 1
}

// QueryFor derives an analog-matching query from the environment context.
func QueryFor(env datatypes.EnvironmentContext) Query {
	return Query{
		WindSpeed:    env.WindSpeed,
		Humidity:     env.Humidity,
		SlopePercent: env.SlopePercent,
		FuelIndex:    FuelIndexFor(env),
	}
}

// Provider produces a historical summary for the given conditions.
//
// Implementations must be safe for concurrent use. An error means the
// caller should substitute FallbackSummary.
type Provider interface {
	Summary(ctx context.Context, q Query) (string, error)
}

// Resolve calls the provider and substitutes FallbackSummary on any
// failure or on a nil provider. The engine never sees a history error.
func Resolve(ctx context.Context, p Provider, q Query, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if p == nil {
		return FallbackSummary
	}
	summary, err := p.Summary(ctx, q)
	if err != nil {
		logger.Warn("history provider failed, using fallback", "error", err)
		return FallbackSummary
	}
	if summary == "" {
		return FallbackSummary
	}
	return summary
}
