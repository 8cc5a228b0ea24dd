package ingestion_engine

import (
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// IngestConfig tunes the pipeline.
//
// HardMaxChars:   a segment never grows past this unless one element alone is larger.
// SoftMaxChars:   once reached, the segment closes at the next element.
// MinChunkChars:  smaller segments are merged into their predecessor.
// EmbedBatchSize: texts per embedding call; batches run sequentially.
// EmbedDim:       expected vector dimension, 0 to skip the check.
type IngestConfig struct {
	HardMaxChars   int
	SoftMaxChars   int
	MinChunkChars  int
	EmbedBatchSize int
	EmbedDim       int

	FetchTimeout   time.Duration
	ExtractTimeout time.Duration
	EnrichTimeout  time.Duration
	EmbedTimeout   time.Duration
	PersistTimeout time.Duration

	EnrichRetry RetryPolicy
	EmbedRetry  RetryPolicy
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		HardMaxChars:   3000,
		SoftMaxChars:   2400,
		MinChunkChars:  500,
		EmbedBatchSize: 10,
		EmbedDim:       1536,
		FetchTimeout:   2 * time.Minute,
		ExtractTimeout: 5 * time.Minute,
		EnrichTimeout:  90 * time.Second,
		EmbedTimeout:   60 * time.Second,
		PersistTimeout: 2 * time.Minute,
		EnrichRetry:    RetryPolicy{Attempts: 2, Backoff: 500 * time.Millisecond},
		EmbedRetry:     RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond},
	}
}

// Dependencies are the collaborators a DocumentIngestor drives.
// StatusCache may be nil.
type Dependencies struct {
	DB          core.DbClient
	Objects     core.ObjectClient
	Pages       core.PageFetcher
	Extractor   core.ContentExtractor
	LLM         core.LLMProvider
	Embedder    core.EmbeddingProvider
	StatusCache core.StatusCache
}

// DocumentIngestor runs the pipeline for one document per Ingest call:
//
// extract -> segment -> classify + enrich per segment -> embed in batches -> persist.
type DocumentIngestor struct {
	db        core.DbClient
	obj       core.ObjectClient
	pages     core.PageFetcher
	extractor core.ContentExtractor
	segmenter *Segmenter
	enricher  *Enricher
	embedder  *BatchEmbedder
	tracker   *StatusTracker
	cfg       IngestConfig
	log       logger.Logger
	newID     func() string
}
