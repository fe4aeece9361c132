// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

type WildfireConfig struct {
	// Server: HTTP surface and storage locations
	Server ServerConfig `yaml:"server"`

	// Simulation: fire grid defaults
	Simulation SimulationConfig `yaml:"simulation"`

	// Secrets: where API keys are read from
	Secrets SecretsConfig `yaml:"secrets"`

	// ModelBackend: which reasoning backend to use
	ModelBackend BackendConfig `yaml:"model_backend"`

	// Observability: exporters for traces and time series
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`         // e.g. 12310
	DataDir     string `yaml:"data_dir"`     // empty means in-memory
	ScenarioDir string `yaml:"scenario_dir"` // drop directory for frames
}

type SimulationConfig struct {
	Seed        int64   `yaml:"seed"`
	TickSeconds float64 `yaml:"tick_seconds"`
}

type SecretsConfig struct {
	UseEnv bool `yaml:"use_env"`
}

type BackendConfig struct {
	// Type selects the reasoning backend. "openai" is the only
	// supported value; empty means openai.
	Type  string `yaml:"type"`
	Model string `yaml:"model,omitempty"`
}

type ObservabilityConfig struct {
	OTELEndpoint string `yaml:"otel_endpoint"`
	InfluxURL    string `yaml:"influx_url,omitempty"`
	InfluxOrg    string `yaml:"influx_org,omitempty"`
	InfluxBucket string `yaml:"influx_bucket,omitempty"`
}

func DefaultConfig() WildfireConfig {
	return WildfireConfig{
		Server: ServerConfig{
			Port: "12310",
		},
		Simulation: SimulationConfig{
			Seed:        42,
			TickSeconds: 2.0,
		},
		Secrets: SecretsConfig{
			UseEnv: true,
		},
		ModelBackend: BackendConfig{
			Type: "openai",
		},
		Observability: ObservabilityConfig{
			OTELEndpoint: "wildfire-otel-collector:4317",
			InfluxOrg:    "wildfire",
			InfluxBucket: "fire_ticks",
		},
	}
}
