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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
	"github.com/AleutianAI/WildfireOS/services/wildfire/engine"
	"github.com/AleutianAI/WildfireOS/services/wildfire/history"
	"github.com/AleutianAI/WildfireOS/services/wildfire/scenario"
)

var replayCmd = &cobra.Command{
	Use:   "replay [directory]",
	Short: "Run recorded scenario frames through the full analysis pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

// replayFrameOutput is one emitted line of a replay run.
type replayFrameOutput struct {
	TimeLabel       string                       `json:"time_label"`
	Step            int                          `json:"step"`
	Notifications   []datatypes.NotificationItem `json:"notifications"`
	Recommendation  datatypes.Recommendation     `json:"recommendation"`
	ComputedPhysics datatypes.ComputedPhysics    `json:"computed_physics"`
	Fallback        bool                         `json:"fallback"`
	Attempts        int                          `json:"attempts"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	logger := newCLILogger()
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	frames, err := scenario.LoadDir(args[0], logger.Slog())
	if err != nil {
		return fmt.Errorf("load scenario frames: %w", err)
	}
	if len(frames) == 0 {
		return fmt.Errorf("no scenario frames found in %s", args[0])
	}

	reasoner, err := buildReasoner(logger.Slog())
	if err != nil {
		return err
	}
	eng := engine.New(reasoner, agents.DefaultRetryConfig(), engine.WithLogger(logger.Slog()))
	provider := history.NewStaticProvider(history.NewAnalogIndex(nil))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	encoder := json.NewEncoder(os.Stdout)
	var previous *datatypes.Recommendation
	for _, frame := range frames {
		summary := history.Resolve(ctx, provider, history.QueryFor(frame.Environment), logger.Slog())
		result, err := eng.Run(ctx, engine.Request{
			Telemetry:              frame.Telemetry,
			Environment:            frame.Environment,
			Infrastructure:         frame.Infrastructure,
			HistorySummary:         summary,
			PreviousRecommendation: previous,
		}, nil)
		if err != nil {
			return fmt.Errorf("analysis failed at frame %q: %w", frame.TimeLabel, err)
		}

		out := replayFrameOutput{
			TimeLabel:       frame.TimeLabel,
			Step:            frame.Telemetry.Step,
			Notifications:   result.Notifications,
			Recommendation:  result.Recommendation,
			ComputedPhysics: result.Physics,
			Fallback:        result.Fallback,
			Attempts:        result.Attempts,
		}
		if err := encoder.Encode(out); err != nil {
			return err
		}

		if !result.Fallback {
			rec := result.Recommendation
			previous = &rec
		}
	}
	return nil
}
