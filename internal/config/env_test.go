package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/contexta")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.BlobBackend)
	assert.Equal(t, "openai", cfg.AIProvider)
	assert.Equal(t, 1536, cfg.EmbedDim)
	assert.Equal(t, 3000, cfg.Pipeline.HardMaxChars)
	assert.Equal(t, 2400, cfg.Pipeline.SoftMaxChars)
	assert.Equal(t, 500, cfg.Pipeline.MinChunkChars)
	assert.Equal(t, 10, cfg.Pipeline.EmbedBatchSize)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.EnrichTimeout)
	assert.Equal(t, 24*time.Hour, cfg.StatusCacheTTL)
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("BLOB_BACKEND", "MINIO")
	t.Setenv("QUEUE_BACKEND", "local")
	t.Setenv("EMBED_TIMEOUT", "5s")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.BlobBackend)
	assert.Equal(t, "local", cfg.QueueBackend)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.EmbedTimeout)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
}

func TestValidate_Thresholds(t *testing.T) {
	setRequired(t)
	t.Setenv("CHUNK_SOFT_MAX_CHARS", "4000")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk thresholds")
}

func TestValidate_UnknownProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("AI_PROVIDER", "llama")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_MissingJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
