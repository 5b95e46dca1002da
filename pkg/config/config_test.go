package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("MINIO_USE_SSL", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.False(t, cfg.MinioUseSSL)
	assert.NotEmpty(t, cfg.ImgbbEndpoint)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RETRY_INITIAL_BACKOFF_MS", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cfg.RetryInitialBackoffMs)
}
