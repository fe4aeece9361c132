// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
	"github.com/AleutianAI/WildfireOS/services/wildfire/engine"
	"github.com/AleutianAI/WildfireOS/services/wildfire/history"
	"github.com/AleutianAI/WildfireOS/services/wildfire/simulation"
)

var (
	simulateSteps     int
	simulateSeed      int64
	simulateWindSpeed float64
	simulateWindDir   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the fire spread model offline and print a tactical read per step",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simulateSteps, "steps", 20, "number of simulation steps")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 42, "random seed for the spread model")
	simulateCmd.Flags().Float64Var(&simulateWindSpeed, "wind-speed", 15, "wind speed in mph")
	simulateCmd.Flags().StringVar(&simulateWindDir, "wind-direction", "N", "wind direction (N, S, E, W)")
}

// simulateStepOutput is one emitted line of the offline run.
type simulateStepOutput struct {
	Step     int                       `json:"step"`
	Burning  int                       `json:"burning"`
	Burned   int                       `json:"burned"`
	Physics  datatypes.ComputedPhysics `json:"physics"`
	Advisory agents.TacticalAdvisory   `json:"advisory"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	dir := datatypes.WindDirection(simulateWindDir)
	if !dir.Valid() {
		return fmt.Errorf("unknown wind direction %q (expected N, S, E, or W)", simulateWindDir)
	}
	if simulateSteps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}

	sim := simulation.New(simulateSeed)
	sim.SetWind(dir, simulateWindSpeed)

	env := datatypes.EnvironmentContext{
		WindSpeed:     simulateWindSpeed,
		WindDirection: dir,
		Humidity:      25,
		SlopePercent:  18,
		Vegetation:    "chaparral",
	}
	index := history.NewAnalogIndex(nil)
	analogs, err := index.Nearest(context.Background(), history.QueryFor(env), 3)
	if err != nil {
		return fmt.Errorf("analog lookup: %w", err)
	}
	stats := history.Stats(analogs)

	encoder := json.NewEncoder(os.Stdout)
	for i := 0; i < simulateSteps; i++ {
		snap := sim.Step()
		telemetry := snap.Telemetry()
		graph := engine.TranslatePhysics(telemetry, env, datatypes.InfrastructureContext{})
		out := simulateStepOutput{
			Step:     snap.Step,
			Burning:  snap.TotalBurning,
			Burned:   snap.TotalBurned,
			Physics:  graph.Physics,
			Advisory: agents.RuleBasedAdvisory(telemetry, simulateWindSpeed, dir, stats),
		}
		if err := encoder.Encode(out); err != nil {
			return err
		}
	}

	fmt.Fprintln(os.Stderr, "\nClosest recorded incidents under these conditions:")
	fmt.Fprintln(os.Stderr, history.Describe(analogs))
	return nil
}
