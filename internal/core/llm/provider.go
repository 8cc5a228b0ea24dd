package llm

import (
	"context"
	"fmt"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// Providers bundles the model capabilities selected by AI_PROVIDER.
type Providers struct {
	Embedder core.EmbeddingProvider
	LLM      core.LLMProvider
	closers  []func() error
}

func (p *Providers) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func NewProviders(ctx context.Context, cfg *config.Config) (*Providers, error) {
	switch cfg.AIProvider {
	case "openai":
		emb, err := NewOpenAIEmbedder(cfg.AIAPIKey, cfg.OpenAIBaseURL, cfg.EmbedModel, cfg.Pipeline.EmbedBatchSize)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		gen, err := NewOpenAILLM(cfg.AIAPIKey, cfg.OpenAIBaseURL, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the llm: %w", err)
		}
		return &Providers{Embedder: emb, LLM: gen}, nil
	case "gemini":
		emb, err := NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		gen, err := NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			_ = emb.Close()
			return nil, fmt.Errorf("couldn't initialize the llm: %w", err)
		}
		return &Providers{Embedder: emb, LLM: gen, closers: []func() error{emb.Close, gen.Close}}, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}
}
