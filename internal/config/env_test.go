// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("ABR_TEST_STRING", "value")
	t.Setenv("ABR_TEST_EMPTY", "")
	t.Setenv("ABR_TEST_INT", "42")
	t.Setenv("ABR_TEST_BAD_INT", "forty")
	t.Setenv("ABR_TEST_DURATION", "1500ms")
	t.Setenv("ABR_TEST_BOOL", "on")
	t.Setenv("ABR_TEST_BAD_BOOL", "maybe")
	t.Setenv("ABR_TEST_FLOAT", "2.5")

	assert.Equal(t, "value", ParseString("ABR_TEST_STRING", "def"))
	assert.Equal(t, "def", ParseString("ABR_TEST_EMPTY", "def"))
	assert.Equal(t, "def", ParseString("ABR_TEST_UNSET", "def"))
	assert.Equal(t, 42, ParseInt("ABR_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("ABR_TEST_BAD_INT", 1))
	assert.Equal(t, 1500*time.Millisecond, ParseDuration("ABR_TEST_DURATION", time.Second))
	assert.True(t, ParseBool("ABR_TEST_BOOL", false))
	assert.True(t, ParseBool("ABR_TEST_BAD_BOOL", true))
	assert.InDelta(t, 2.5, ParseFloat("ABR_TEST_FLOAT", 0), 1e-9)
}

func TestIsSensitive(t *testing.T) {
	for _, key := range []string{EnvCloudflareAPIToken, EnvCloudFrontSecretKey, EnvCloudFrontAccessKeyID, EnvFastlyAPIKey, EnvRedisPassword} {
		assert.True(t, isSensitive(key), key)
	}
	assert.False(t, isSensitive(EnvCloudflareURL))
}
