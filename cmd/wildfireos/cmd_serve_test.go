// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for serve command configuration

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/WildfireOS/cmd/wildfireos/config"
)

func TestServeConfig_FileFillsUnsetEnv(t *testing.T) {
	// Arrange
	config.Global = config.DefaultConfig()
	config.Global.Server.Port = "9100"
	config.Global.Server.DataDir = "/var/lib/wildfire"
	config.Global.Simulation.Seed = 7
	config.Global.Simulation.TickSeconds = 0.5
	t.Setenv("WILDFIRE_PORT", "")
	t.Setenv("WILDFIRE_DATA_DIR", "")
	t.Setenv("WILDFIRE_SEED", "")
	t.Setenv("WILDFIRE_TICK_SECONDS", "")

	// Act
	cfg := serveConfig()

	// Assert
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "/var/lib/wildfire", cfg.DataDir)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
}

func TestServeConfig_EnvWinsOverFile(t *testing.T) {
	config.Global = config.DefaultConfig()
	config.Global.Server.Port = "9100"
	t.Setenv("WILDFIRE_PORT", "8080")

	cfg := serveConfig()

	assert.Equal(t, "8080", cfg.Port)
}

func TestBuildReasoner_UnknownBackend(t *testing.T) {
	config.Global = config.DefaultConfig()
	config.Global.ModelBackend.Type = "mystery"

	_, err := buildReasoner(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model backend")
}

func TestBuildReasoner_OpenAIFromEnvKey(t *testing.T) {
	config.Global = config.DefaultConfig()
	t.Setenv("OPENAI_API_KEY", "sk-test-key")

	reasoner, err := buildReasoner(nil)

	require.NoError(t, err)
	assert.NotNil(t, reasoner)
}
