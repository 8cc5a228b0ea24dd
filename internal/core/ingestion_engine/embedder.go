package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// BatchEmbedder embeds texts in fixed-size batches issued one after another.
type BatchEmbedder struct {
	provider  core.EmbeddingProvider
	batchSize int
	dim       int
	timeout   time.Duration
	retry     RetryPolicy
	log       logger.Logger
}

func NewBatchEmbedder(provider core.EmbeddingProvider, batchSize, dim int, timeout time.Duration, retry RetryPolicy, log logger.Logger) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultIngestConfig().EmbedBatchSize
	}
	return &BatchEmbedder{provider: provider, batchSize: batchSize, dim: dim, timeout: timeout, retry: retry, log: log}
}

// Embed returns one vector per text, order preserved, and the number of batches sent.
func (b *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	out := make([][]float32, 0, len(texts))
	batches := 0

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		batch := texts[start:end]

		var vecs [][]float32
		err := retry(ctx, b.retry, func(ctx context.Context) error {
			callCtx := ctx
			if b.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, b.timeout)
				defer cancel()
			}
			v, err := b.provider.EmbedTexts(callCtx, batch)
			if err != nil {
				return err
			}
			vecs = v
			return nil
		})
		if err != nil {
			return nil, batches, &EmbeddingError{Batch: batches, Err: err}
		}
		if len(vecs) != len(batch) {
			return nil, batches, &EmbeddingError{Batch: batches, Err: fmt.Errorf("got %d vectors for %d texts", len(vecs), len(batch))}
		}
		for i, v := range vecs {
			if b.dim > 0 && len(v) != b.dim {
				return nil, batches, &EmbeddingError{Batch: batches, Err: fmt.Errorf("vector %d has dimension %d, want %d", start+i, len(v), b.dim)}
			}
		}

		out = append(out, vecs...)
		batches++
		b.log.Debug("embedded batch", logger.Int("batch", batches), logger.Int("size", len(batch)))
	}
	return out, batches, nil
}
