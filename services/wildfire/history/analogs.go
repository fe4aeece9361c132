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
	"math"
	"sort"
	"strings"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
)

// AnalogFire is one recorded historical incident.
type AnalogFire struct {
	Name        string  `json:"name"`
	Year        int     `json:"year"`
	WindSpeed   float64 `json:"wind_speed"`
	Humidity    float64 `json:"humidity"`
	Slope       float64 `json:"slope_percent"`
	FuelIndex   float64 `json:"fuel_index"`
	Contained   bool    `json:"contained"`
	AcresBurned float64 `json:"acres_burned"`
	Outcome     string  `json:"outcome"`
}

// conditions returns the incident's normalized feature vector.
func (f AnalogFire) conditions() []float32 {
	return Query{
		WindSpeed:    f.WindSpeed,
		Humidity:     f.Humidity,
		SlopePercent: f.Slope,
		FuelIndex:    f.FuelIndex,
	}.Vector()
}

// ScoredAnalog pairs an incident with its distance to the query, lower is
// closer.
type ScoredAnalog struct {
	Fire     AnalogFire
	Distance float64
}

// Source finds the incidents most similar to the given conditions.
// Implementations must be safe for concurrent use.
type Source interface {
	Nearest(ctx context.Context, q Query, k int) ([]ScoredAnalog, error)
}

// =============================================================================
// Index
// =============================================================================

// AnalogIndex is an in-memory nearest-neighbor index over recorded
// incidents. The record set is fixed at construction; lookups are
// read-only, so the index is safe for concurrent use.
type AnalogIndex struct {
	fires []AnalogFire
}

// NewAnalogIndex builds an index over the given records. With no records it
// falls back to the built-in incident set.
func NewAnalogIndex(fires []AnalogFire) *AnalogIndex {
	if len(fires) == 0 {
		fires = builtinFires
	}
	return &AnalogIndex{fires: fires}
}

// Nearest returns the k closest incidents to the query by Euclidean
// distance over normalized conditions, closest first. Ties keep record
// order, so results are deterministic. Never fails; the error satisfies
// Source.
func (idx *AnalogIndex) Nearest(_ context.Context, q Query, k int) ([]ScoredAnalog, error) {
	if k <= 0 {
		return nil, nil
	}
	qv := q.Vector()
	scored := make([]ScoredAnalog, 0, len(idx.fires))
	for _, f := range idx.fires {
		scored = append(scored, ScoredAnalog{Fire: f, Distance: distance(qv, f.conditions())})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Stats aggregates a set of analogs into the failure rate and mean final
// size consumed by the rule-based advisory path.
func Stats(analogs []ScoredAnalog) agents.AnalogStats {
	if len(analogs) == 0 {
		return agents.AnalogStats{}
	}
	failed := 0
	var acres float64
	for _, a := range analogs {
		if !a.Fire.Contained {
			failed++
		}
		acres += a.Fire.AcresBurned
	}
	return agents.AnalogStats{
		FailureProbability: float64(failed) / float64(len(analogs)),
		AvgAcresBurned:     acres / float64(len(analogs)),
	}
}

// Describe renders the analogs as the bullet list injected into summarizer
// prompts.
func Describe(analogs []ScoredAnalog) string {
	var b strings.Builder
	for _, a := range analogs {
		status := "contained"
		if !a.Fire.Contained {
			status = "escaped containment"
		}
		fmt.Fprintf(&b, "- %s (%d): winds %.0f mph, humidity %.0f%%, slope %.0f%%; %s at %.0f acres. %s\n",
			a.Fire.Name, a.Fire.Year, a.Fire.WindSpeed, a.Fire.Humidity, a.Fire.Slope,
			status, a.Fire.AcresBurned, a.Fire.Outcome)
	}
	return b.String()
}

// BuiltinFires returns a copy of the packaged incident set, usable to seed
// an external store.
func BuiltinFires() []AnalogFire {
	out := make([]AnalogFire, len(builtinFires))
	copy(out, builtinFires)
	return out
}

// builtinFires is the packaged incident set used when no external store is
// configured. Values are representative, not a survey product.
var builtinFires = []AnalogFire{
	{Name: "Copper Canyon Fire", Year: 2018, WindSpeed: 38, Humidity: 9, Slope: 28, FuelIndex: 3, Contained: false, AcresBurned: 14200, Outcome: "Spotting across the canyon defeated two containment lines."},
	{Name: "Millbrook Fire", Year: 2020, WindSpeed: 12, Humidity: 42, Slope: 8, FuelIndex: 1, Contained: true, AcresBurned: 310, Outcome: "Held at the first dozer line within two burn periods."},
	{Name: "Sawtooth Ridge Fire", Year: 2017, WindSpeed: 29, Humidity: 14, Slope: 34, FuelIndex: 4, Contained: false, AcresBurned: 22100, Outcome: "Upslope runs in heavy timber outpaced crews for five days."},
	{Name: "Dry Creek Fire", Year: 2021, WindSpeed: 18, Humidity: 25, Slope: 12, FuelIndex: 2, Contained: true, AcresBurned: 1850, Outcome: "Contained after a favorable wind shift on day two."},
	{Name: "Vermilion Gap Fire", Year: 2019, WindSpeed: 41, Humidity: 7, Slope: 22, FuelIndex: 3, Contained: false, AcresBurned: 31800, Outcome: "Wind-driven head fire forced three evacuation waves."},
	{Name: "Antelope Flat Fire", Year: 2016, WindSpeed: 9, Humidity: 48, Slope: 4, FuelIndex: 1, Contained: true, AcresBurned: 120, Outcome: "Initial attack held it to a single grass unit."},
	{Name: "Black Pine Fire", Year: 2022, WindSpeed: 24, Humidity: 18, Slope: 31, FuelIndex: 4, Contained: false, AcresBurned: 9400, Outcome: "Night inversions slowed it but slope runs kept reopening the line."},
	{Name: "Cottonwood Wash Fire", Year: 2015, WindSpeed: 15, Humidity: 33, Slope: 10, FuelIndex: 2, Contained: true, AcresBurned: 760, Outcome: "Retardant drops anchored the heel early."},
	{Name: "Granite Bowl Fire", Year: 2019, WindSpeed: 33, Humidity: 11, Slope: 38, FuelIndex: 3, Contained: false, AcresBurned: 17600, Outcome: "Terrain-aligned winds drove it over the ridge on day one."},
	{Name: "Juniper Bench Fire", Year: 2023, WindSpeed: 21, Humidity: 22, Slope: 16, FuelIndex: 2, Contained: true, AcresBurned: 2400, Outcome: "Contained against last season's burn scar."},
	{Name: "Lost Horse Fire", Year: 2014, WindSpeed: 27, Humidity: 16, Slope: 26, FuelIndex: 3, Contained: false, AcresBurned: 12900, Outcome: "Chaparral reburn carried fire through the old scar."},
	{Name: "Meadow Fork Fire", Year: 2020, WindSpeed: 7, Humidity: 55, Slope: 6, FuelIndex: 1, Contained: true, AcresBurned: 85, Outcome: "Rain ended it before full perimeter control."},
	{Name: "Obsidian Point Fire", Year: 2018, WindSpeed: 36, Humidity: 10, Slope: 19, FuelIndex: 2, Contained: false, AcresBurned: 8700, Outcome: "Ember cast ignited structures 2km ahead of the front."},
	{Name: "Pinyon Mesa Fire", Year: 2021, WindSpeed: 14, Humidity: 30, Slope: 14, FuelIndex: 2, Contained: true, AcresBurned: 1300, Outcome: "Burnout operations secured the downwind flank."},
	{Name: "Redtail Butte Fire", Year: 2022, WindSpeed: 31, Humidity: 13, Slope: 29, FuelIndex: 3, Contained: false, AcresBurned: 15400, Outcome: "Crown runs in beetle-killed timber closed the only access road."},
	{Name: "Silver Fork Fire", Year: 2016, WindSpeed: 11, Humidity: 40, Slope: 9, FuelIndex: 1, Contained: true, AcresBurned: 430, Outcome: "Held inside the first operational period."},
	{Name: "Tamarack Slide Fire", Year: 2017, WindSpeed: 26, Humidity: 17, Slope: 35, FuelIndex: 4, Contained: false, AcresBurned: 19800, Outcome: "Slope-driven runs above the river corridor defeated direct attack."},
	{Name: "Willow Basin Fire", Year: 2023, WindSpeed: 17, Humidity: 28, Slope: 13, FuelIndex: 2, Contained: true, AcresBurned: 980, Outcome: "Anchored to the basin floor and pinched at both flanks."},
	{Name: "Yellowjacket Fire", Year: 2015, WindSpeed: 39, Humidity: 8, Slope: 24, FuelIndex: 3, Contained: false, AcresBurned: 27300, Outcome: "Sustained gusts grounded air resources for two critical days."},
	{Name: "Caldera Rim Fire", Year: 2019, WindSpeed: 20, Humidity: 24, Slope: 18, FuelIndex: 2, Contained: true, AcresBurned: 2100, Outcome: "Held at the rim road with heavy engine support."},
}
