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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/WildfireOS/cmd/wildfireos/config"
	"github.com/AleutianAI/WildfireOS/services/wildfire"
	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wildfire analysis server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newCLILogger()
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	reasoner, err := buildReasoner(logger.Slog())
	if err != nil {
		return err
	}

	svc, err := wildfire.NewService(serveConfig(), reasoner, logger.Slog())
	if err != nil {
		return fmt.Errorf("assemble the service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return svc.Run(ctx)
}

// serveConfig merges the YAML config under the environment: an explicit
// env var always wins over the file.
func serveConfig() wildfire.Config {
	cfg := wildfire.ConfigFromEnv()
	fileCfg := config.Global

	if os.Getenv("WILDFIRE_PORT") == "" && fileCfg.Server.Port != "" {
		cfg.Port = fileCfg.Server.Port
	}
	if cfg.DataDir == "" {
		cfg.DataDir = fileCfg.Server.DataDir
	}
	if cfg.ScenarioDir == "" {
		cfg.ScenarioDir = fileCfg.Server.ScenarioDir
	}
	if os.Getenv("WILDFIRE_SEED") == "" && fileCfg.Simulation.Seed != 0 {
		cfg.Seed = fileCfg.Simulation.Seed
	}
	if os.Getenv("WILDFIRE_TICK_SECONDS") == "" && fileCfg.Simulation.TickSeconds > 0 {
		cfg.TickInterval = time.Duration(fileCfg.Simulation.TickSeconds * float64(time.Second))
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && fileCfg.Observability.OTELEndpoint != "" {
		cfg.OTELEndpoint = fileCfg.Observability.OTELEndpoint
	}
	if cfg.InfluxURL == "" {
		cfg.InfluxURL = fileCfg.Observability.InfluxURL
	}
	if os.Getenv("INFLUXDB_ORG") == "" && fileCfg.Observability.InfluxOrg != "" {
		cfg.InfluxOrg = fileCfg.Observability.InfluxOrg
	}
	if os.Getenv("INFLUXDB_BUCKET") == "" && fileCfg.Observability.InfluxBucket != "" {
		cfg.InfluxBucket = fileCfg.Observability.InfluxBucket
	}
	return cfg
}

// buildReasoner creates the reasoning backend named in the config. The API
// key lives in locked memory until the client is constructed.
func buildReasoner(logger *slog.Logger) (agents.Reasoner, error) {
	backend := config.Global.ModelBackend.Type
	switch backend {
	case "", "openai":
		key, err := config.OpenAIKey()
		if err != nil {
			return nil, err
		}
		defer key.Destroy()

		model := config.Global.ModelBackend.Model
		if model == "" {
			model = "gpt-4o-2024-08-06"
		}
		client := openai.NewClient(key.String())
		return agents.NewOpenAIReasonerWithClient(client, model, logger), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q (expected \"openai\")", backend)
	}
}
