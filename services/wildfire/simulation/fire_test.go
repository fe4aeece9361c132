// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

func TestNew_SingleCentralIgnition(t *testing.T) {
	sim := New(42)

	snap := sim.Snapshot()

	assert.Equal(t, 0, snap.Step)
	assert.Equal(t, 1, snap.TotalBurning)
	assert.Zero(t, snap.TotalBurned)
	require.Len(t, snap.BurningCells, 1)
	assert.Equal(t, Point{GridSize / 2, GridSize / 2}, snap.BurningCells[0])
}

func TestStep_BurnLifecycle(t *testing.T) {
	sim := New(42)

	// After two steps the original ignition cell has burned out.
	sim.Step()
	snap := sim.Step()

	assert.Equal(t, 2, snap.Step)
	assert.GreaterOrEqual(t, snap.TotalBurned, 1,
		"the ignition cell ashes out after two ticks")
	assert.Positive(t, snap.TotalBurning)
}

func TestStep_DeterministicForSeed(t *testing.T) {
	a, b := New(7), New(7)

	var lastA, lastB Snapshot
	for i := 0; i < 10; i++ {
		lastA, lastB = a.Step(), b.Step()
	}

	assert.Equal(t, lastA, lastB, "same seed and wind must replay identically")
}

func TestStep_SeedsDiverge(t *testing.T) {
	a, b := New(1), New(2)

	for i := 0; i < 10; i++ {
		a.Step()
		b.Step()
	}

	assert.NotEqual(t, a.Snapshot().BurningCells, b.Snapshot().BurningCells)
}

func TestSetWind(t *testing.T) {
	sim := New(42)

	sim.SetWind(datatypes.WindEast, 35)
	dir, speed := sim.Wind()
	assert.Equal(t, datatypes.WindEast, dir)
	assert.Equal(t, 35.0, speed)

	// Invalid direction and negative speed are ignored.
	sim.SetWind("NE", -5)
	dir, speed = sim.Wind()
	assert.Equal(t, datatypes.WindEast, dir)
	assert.Equal(t, 35.0, speed)
}

func TestSpreadProbability_Clamping(t *testing.T) {
	sim := New(42)
	sim.SetWind(datatypes.WindNorth, 100)

	downwind := sim.spreadProbability(offset{-1, 0})
	upwind := sim.spreadProbability(offset{1, 0})
	crosswind := sim.spreadProbability(offset{0, 1})

	assert.Equal(t, maxSpreadProb, downwind, "wind bonus caps at the clamp")
	assert.InDelta(t, baseSpreadProb+upwindPenalty, upwind, 1e-9)
	assert.InDelta(t, baseSpreadProb, crosswind, 1e-9)
}

func TestComputePerimeter(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, computePerimeter(nil))
	})

	t.Run("closed polygon", func(t *testing.T) {
		cells := []Point{{2, 2}, {2, 4}, {3, 3}, {4, 2}, {4, 5}}

		perimeter := computePerimeter(cells)

		require.NotEmpty(t, perimeter)
		assert.Equal(t, perimeter[0], perimeter[len(perimeter)-1], "polygon is closed")
		assert.Equal(t, Point{2, 2}, perimeter[0], "walk starts at the leftmost column's top cell")
	})
}

func TestSnapshotTelemetry(t *testing.T) {
	snap := Snapshot{Step: 4, TotalBurning: 12, TotalBurned: 30}

	raw := snap.Telemetry()

	assert.Equal(t, 4, raw.Step)
	assert.Equal(t, 12, raw.ActiveCells)
	assert.Equal(t, 30, raw.DestroyedCells)
}
