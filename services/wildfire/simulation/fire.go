// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package simulation runs the cellular fire spread model that feeds the
// orchestration engine with telemetry. The model is a deterministic
// function of its seed and wind inputs; replaying the same seed and wind
// schedule reproduces the same run.
package simulation

import (
	"math/rand"
	"sync"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// GridSize is the side length of the square fire grid.
const GridSize = 50

// Cell is one grid cell's state.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellTree
	CellBurning1 // first tick of burning
	CellBurning2 // second tick; becomes ash next step
)

// Spread probability model.
const (
	baseSpreadProb = 0.45
	windBonusCap   = 0.5
	windSpeedScale = 40.0
	upwindPenalty  = -0.15
	minSpreadProb  = 0.1
	maxSpreadProb  = 0.95
	defaultWindMph = 10.0
)

type offset struct{ dr, dc int }

var directionOffsets = map[datatypes.WindDirection]offset{
	datatypes.WindNorth: {-1, 0},
	datatypes.WindSouth: {1, 0},
	datatypes.WindEast:  {0, 1},
	datatypes.WindWest:  {0, -1},
}

var neighborOffsets = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Point is a grid coordinate in [x, y] order for wire compatibility with
// map overlays.
type Point [2]int

// Snapshot is the observable state after one step.
type Snapshot struct {
	BurningCells     []Point `json:"burning_cells"`
	PerimeterPolygon []Point `json:"perimeter_polygon"`
	TotalBurning     int     `json:"total_burning"`
	TotalBurned      int     `json:"total_burned"`
	Step             int     `json:"step"`
}

// Telemetry converts the snapshot into the engine's raw telemetry form.
func (s Snapshot) Telemetry() datatypes.RawTelemetry {
	return datatypes.RawTelemetry{
		Step:           s.Step,
		ActiveCells:    s.TotalBurning,
		DestroyedCells: s.TotalBurned,
	}
}

// FireSimulation is the cellular automaton. A single ignition starts at the
// grid center; burning cells live two ticks and then turn to ash. Spread is
// biased toward the wind direction and suppressed against it.
//
// # Thread Safety
//
// Safe for concurrent use. Step and SetWind serialize on an internal
// mutex; snapshots are copies.
type FireSimulation struct {
	mu            sync.Mutex
	rng           *rand.Rand
	grid          [GridSize][GridSize]Cell
	windDirection datatypes.WindDirection
	windSpeed     float64
	stepCount     int
}

// New creates a simulation seeded for reproducible runs.
func New(seed int64) *FireSimulation {
	sim := &FireSimulation{
		rng:           rand.New(rand.NewSource(seed)),
		windDirection: datatypes.WindNorth,
		windSpeed:     defaultWindMph,
	}
	for r := 0; r < GridSize; r++ {
		for c := 0; c < GridSize; c++ {
			sim.grid[r][c] = CellTree
		}
	}
	center := GridSize / 2
	sim.grid[center][center] = CellBurning1
	return sim
}

// SetWind updates the prevailing wind. Invalid directions are ignored.
func (s *FireSimulation) SetWind(direction datatypes.WindDirection, speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if direction.Valid() {
		s.windDirection = direction
	}
	if speed >= 0 {
		s.windSpeed = speed
	}
}

// Wind returns the current wind direction and speed.
func (s *FireSimulation) Wind() (datatypes.WindDirection, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windDirection, s.windSpeed
}

// spreadProbability computes the chance of ignition across one neighbor
// offset under the current wind, clamped to [minSpreadProb, maxSpreadProb].
func (s *FireSimulation) spreadProbability(d offset) float64 {
	prob := baseSpreadProb
	wind := directionOffsets[s.windDirection]
	switch d {
	case wind:
		bonus := s.windSpeed / windSpeedScale
		if bonus > windBonusCap {
			bonus = windBonusCap
		}
		prob += bonus
	case offset{-wind.dr, -wind.dc}:
		prob += upwindPenalty
	}
	if prob < minSpreadProb {
		prob = minSpreadProb
	}
	if prob > maxSpreadProb {
		prob = maxSpreadProb
	}
	return prob
}

// Step advances the simulation one tick and returns the new snapshot.
func (s *FireSimulation) Step() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stepCount++
	next := s.grid

	// Burn lifecycle: second-tick cells ash out, first-tick cells age.
	for r := 0; r < GridSize; r++ {
		for c := 0; c < GridSize; c++ {
			switch s.grid[r][c] {
			case CellBurning2:
				next[r][c] = CellEmpty
			case CellBurning1:
				next[r][c] = CellBurning2
			}
		}
	}

	// Spread from every burning cell into neighboring trees. Reads come
	// from the pre-step grid so ignition order within a tick is irrelevant.
	for r := 0; r < GridSize; r++ {
		for c := 0; c < GridSize; c++ {
			if s.grid[r][c] != CellBurning1 && s.grid[r][c] != CellBurning2 {
				continue
			}
			for _, d := range neighborOffsets {
				nr, nc := r+d.dr, c+d.dc
				if nr < 0 || nr >= GridSize || nc < 0 || nc >= GridSize {
					continue
				}
				if s.grid[nr][nc] != CellTree {
					continue
				}
				if s.rng.Float64() < s.spreadProbability(d) {
					next[nr][nc] = CellBurning1
				}
			}
		}
	}

	s.grid = next
	return s.snapshotLocked()
}

// Snapshot returns the current observable state without advancing time.
func (s *FireSimulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *FireSimulation) snapshotLocked() Snapshot {
	var burning []Point
	burned := 0
	for r := 0; r < GridSize; r++ {
		for c := 0; c < GridSize; c++ {
			switch s.grid[r][c] {
			case CellBurning1, CellBurning2:
				burning = append(burning, Point{c, r})
			case CellEmpty:
				burned++
			}
		}
	}
	return Snapshot{
		BurningCells:     burning,
		PerimeterPolygon: computePerimeter(burning),
		TotalBurning:     len(burning),
		TotalBurned:      burned,
		Step:             s.stepCount,
	}
}

// computePerimeter traces a closed hull polygon around the burning cells:
// the topmost and bottommost burning cell per occupied column, walked left
// to right and back.
func computePerimeter(burning []Point) []Point {
	if len(burning) == 0 {
		return nil
	}

	minX, maxX := burning[0][0], burning[0][0]
	for _, p := range burning {
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
	}

	var top, bottom []Point
	for x := minX; x <= maxX; x++ {
		minY, maxY := -1, -1
		for _, p := range burning {
			if p[0] != x {
				continue
			}
			if minY == -1 || p[1] < minY {
				minY = p[1]
			}
			if maxY == -1 || p[1] > maxY {
				maxY = p[1]
			}
		}
		if minY != -1 {
			top = append(top, Point{x, minY})
			bottom = append(bottom, Point{x, maxY})
		}
	}

	perimeter := top
	for i := len(bottom) - 1; i >= 0; i-- {
		perimeter = append(perimeter, bottom[i])
	}
	if len(perimeter) > 0 && perimeter[0] != perimeter[len(perimeter)-1] {
		perimeter = append(perimeter, perimeter[0])
	}
	return perimeter
}
