package ingestion_engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

const enrichSystemPrompt = "You write retrieval summaries of document excerpts for a semantic search index."

const enrichInstructions = `Write a search-index summary of the content above in 250 to 400 words.
Cover:
- the key questions this content answers;
- searchable keywords: data points, concepts and terminology it contains;
- when tables are present, the relationships and comparisons they show;
- when images are attached, the visual content and any trends they depict.
Answer with the summary text only.`

// Enricher produces a text surrogate for segments that contain tables or images.
type Enricher struct {
	llm     core.LLMProvider
	timeout time.Duration
	retry   RetryPolicy
}

func NewEnricher(llm core.LLMProvider, timeout time.Duration, retry RetryPolicy) *Enricher {
	return &Enricher{llm: llm, timeout: timeout, retry: retry}
}

// Enrich returns the text to embed for a classified segment. Pure text comes back
// unchanged without a model call. A model fault or an empty answer is reported as
// *EnrichmentFailure; the caller decides the fallback.
func (e *Enricher) Enrich(ctx context.Context, chunkIndex int, c Classified) (string, error) {
	if !c.HasMedia() {
		return c.Text, nil
	}

	prompt := buildEnrichPrompt(c.Text, c.Tables)

	var summary string
	err := retry(ctx, e.retry, func(ctx context.Context) error {
		callCtx := ctx
		if e.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}
		out, err := e.llm.Generate(callCtx, enrichSystemPrompt, prompt, c.Images)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return ErrEmptySummary
		}
		summary = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", &EnrichmentFailure{ChunkIndex: chunkIndex, Err: err}
	}
	return summary, nil
}

func buildEnrichPrompt(text string, tables []string) string {
	var b strings.Builder
	if text != "" {
		b.WriteString("Text:\n")
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	for i, t := range tables {
		fmt.Fprintf(&b, "Table %d:\n%s\n\n", i+1, t)
	}
	b.WriteString(enrichInstructions)
	return b.String()
}
