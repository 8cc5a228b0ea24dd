package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/contexta-ingest/internal/api/handlers"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

func TestIngestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		EmbedDim: 768,
		Pipeline: config.PipelineConfig{
			HardMaxChars:   4000,
			SoftMaxChars:   3000,
			MinChunkChars:  400,
			EmbedBatchSize: 16,
			EnrichTimeout:  time.Minute,
			EnrichAttempts: 2,
			EmbedAttempts:  5,
			RetryBackoff:   time.Second,
		},
	}

	ic := IngestConfigFrom(cfg)
	assert.Equal(t, 4000, ic.HardMaxChars)
	assert.Equal(t, 3000, ic.SoftMaxChars)
	assert.Equal(t, 400, ic.MinChunkChars)
	assert.Equal(t, 16, ic.EmbedBatchSize)
	assert.Equal(t, 768, ic.EmbedDim)
	assert.Equal(t, time.Minute, ic.EnrichTimeout)
	assert.Equal(t, 2, ic.EnrichRetry.Attempts)
	assert.Equal(t, 5, ic.EmbedRetry.Attempts)
	assert.Equal(t, time.Second, ic.EmbedRetry.Backoff)
}

func TestRouter_HealthzAndAuth(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s"}
	r := NewRouter(cfg, handlers.NewDocumentHandler(nil, logger.NewNop()), logger.NewNop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/d1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
