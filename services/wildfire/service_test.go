// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for service configuration and assembly

package wildfire

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
	"github.com/AleutianAI/WildfireOS/services/wildfire/history"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg := ConfigFromEnv()

	assert.Equal(t, "12310", cfg.Port)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, "wildfire", cfg.InfluxOrg)
	assert.Equal(t, "fire_ticks", cfg.InfluxBucket)
	assert.Empty(t, cfg.DataDir)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("WILDFIRE_PORT", "9000")
	t.Setenv("WILDFIRE_SEED", "7")
	t.Setenv("WILDFIRE_TICK_SECONDS", "0.5")

	cfg := ConfigFromEnv()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
}

func TestConfigFromEnv_IgnoresBadValues(t *testing.T) {
	t.Setenv("WILDFIRE_SEED", "not-a-number")
	t.Setenv("WILDFIRE_TICK_SECONDS", "-3")

	cfg := ConfigFromEnv()

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
}

func TestNewService_AssemblesInMemoryStack(t *testing.T) {
	// Arrange
	cfg := ConfigFromEnv()
	cfg.TickInterval = 100 * time.Millisecond

	// Act
	svc, err := NewService(cfg, agents.NewScriptedReasoner(), nil)

	// Assert
	require.NoError(t, err)
	t.Cleanup(func() { svc.feed.Close() })

	assert.NotNil(t, svc.router)
	assert.NotNil(t, svc.hub)
	assert.Equal(t, 100*time.Millisecond, svc.ticker.Interval())

	// No Weaviate configured: the analog source is the in-memory index.
	_, isIndex := svc.analogs.(*history.AnalogIndex)
	assert.True(t, isIndex)
}

func TestTickController_Concurrency(t *testing.T) {
	ticker := &tickController{interval: time.Second}

	ticker.SetInterval(250 * time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, ticker.Interval())
}
