// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for secret resolution

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIKey_FromEnv(t *testing.T) {
	Global.Secrets.UseEnv = true
	t.Setenv("OPENAI_API_KEY", "sk-test-1234")

	buf, err := OpenAIKey()
	require.NoError(t, err)
	defer buf.Destroy()

	assert.Equal(t, "sk-test-1234", buf.String())
}

func TestOpenAIKey_MissingEverywhere(t *testing.T) {
	Global.Secrets.UseEnv = true
	t.Setenv("OPENAI_API_KEY", "")

	_, err := OpenAIKey()
	assert.Error(t, err)
}
