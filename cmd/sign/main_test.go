package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetSecretEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"KRAKEN_API_SECRET", "API_SECRET"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestResolveSecretFlagWins(t *testing.T) {
	unsetSecretEnv(t)
	got, err := resolveSecret("bm9uY2U=", "", "")
	require.NoError(t, err)
	assert.Equal(t, "bm9uY2U=", got)
}

func TestResolveSecretFromEnvFile(t *testing.T) {
	unsetSecretEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("API_SECRET=bm9uY2U=\n"), 0o600))

	got, err := resolveSecret("", "", envFile)
	require.NoError(t, err)
	assert.Equal(t, "bm9uY2U=", got)

	_, ok := os.LookupEnv("API_SECRET")
	assert.False(t, ok)
}

func TestResolveSecretFromConfigFile(t *testing.T) {
	unsetSecretEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("kraken:\n  api_secret: bm9uY2Y=\n"), 0o600))

	got, err := resolveSecret("", cfgPath, "")
	require.NoError(t, err)
	assert.Equal(t, "bm9uY2Y=", got)
}

func TestResolveSecretMissing(t *testing.T) {
	unsetSecretEnv(t)
	_, err := resolveSecret("", "", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
