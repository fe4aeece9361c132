// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package wildfire assembles the fire analysis service: the simulation
// loop, the orchestration engine, persistence, and the HTTP surface.
package wildfire

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the service reads from its environment.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// DataDir is the on-disk store location. Empty means in-memory.
	DataDir string

	// ScenarioDir, when set, is watched for dropped scenario frames that
	// are fed through the analysis pipeline.
	ScenarioDir string

	// Seed drives the simulation's random source.
	Seed int64

	// TickInterval is the initial simulation tick period.
	TickInterval time.Duration

	// OTELEndpoint is the OTLP collector address for traces.
	OTELEndpoint string

	// WeaviateURL, when set, switches analog retrieval from the in-memory
	// index to a Weaviate vector store.
	WeaviateURL string

	// InfluxURL and friends enable per-tick time series recording when the
	// URL is non-empty.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// ConfigFromEnv builds a Config from environment variables, applying
// defaults for anything unset.
func ConfigFromEnv() Config {
	cfg := Config{
		Port:         envOr("WILDFIRE_PORT", "12310"),
		DataDir:      os.Getenv("WILDFIRE_DATA_DIR"),
		ScenarioDir:  os.Getenv("WILDFIRE_SCENARIO_DIR"),
		Seed:         42,
		TickInterval: 2 * time.Second,
		OTELEndpoint: envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "wildfire-otel-collector:4317"),
		WeaviateURL:  os.Getenv("WEAVIATE_SERVICE_URL"),
		InfluxURL:    os.Getenv("INFLUXDB_URL"),
		InfluxToken:  os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:    envOr("INFLUXDB_ORG", "wildfire"),
		InfluxBucket: envOr("INFLUXDB_BUCKET", "fire_ticks"),
	}
	if raw := os.Getenv("WILDFIRE_SEED"); raw != "" {
		if seed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
	if raw := os.Getenv("WILDFIRE_TICK_SECONDS"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			cfg.TickInterval = time.Duration(secs * float64(time.Second))
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
