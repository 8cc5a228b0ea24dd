package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// Stage names recorded as failed_stage.
const (
	StageFetch        = "fetch"
	StageExtraction   = "extraction"
	StageSegmentation = "segmentation"
	StageEnrichment   = "enrichment"
	StageEmbedding    = "embedding"
	StagePersistence  = "persistence"
)

const failWriteTimeout = 30 * time.Second

var _ Ingestor = (*DocumentIngestor)(nil)

func NewDocumentIngestor(deps Dependencies, cfg IngestConfig, log logger.Logger) *DocumentIngestor {
	return &DocumentIngestor{
		db:        deps.DB,
		obj:       deps.Objects,
		pages:     deps.Pages,
		extractor: deps.Extractor,
		segmenter: NewSegmenter(cfg.HardMaxChars, cfg.SoftMaxChars, cfg.MinChunkChars),
		enricher:  NewEnricher(deps.LLM, cfg.EnrichTimeout, cfg.EnrichRetry),
		embedder:  NewBatchEmbedder(deps.Embedder, cfg.EmbedBatchSize, cfg.EmbedDim, cfg.EmbedTimeout, cfg.EmbedRetry, log.Named("embedder")),
		tracker:   NewStatusTracker(deps.DB, deps.StatusCache, log.Named("status")),
		cfg:       cfg,
		log:       log,
		newID:     uuid.NewString,
	}
}

// Tracker exposes the status tracker so submission code shares the transition rules.
func (i *DocumentIngestor) Tracker() *StatusTracker {
	return i.tracker
}

// stageError tags a fatal error with the stage that raised it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failAt(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

// Ingest runs the whole pipeline for a queued document. Any fatal stage error moves the
// document to failed and is returned for the caller's logging; it is never retried here.
// Documents that are not queued are left untouched and ErrNotQueued is returned.
func (i *DocumentIngestor) Ingest(ctx context.Context, documentID string) error {
	log := i.log.With(logger.String("document_id", documentID))

	doc, err := i.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	if doc.Status != models.StatusQueued {
		log.Info("skipping document that is not queued", logger.String("status", string(doc.Status)))
		return fmt.Errorf("%w: %s is %s", ErrNotQueued, documentID, doc.Status)
	}

	// claim the run; a concurrent run that moved the document first wins
	if err := i.tracker.Transition(ctx, doc.ID, models.StatusPartitioning, nil); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			log.Info("document claimed by another run")
			return fmt.Errorf("%w: %s", ErrNotQueued, err)
		}
		return fmt.Errorf("claim document %s: %w", documentID, err)
	}

	started := time.Now()
	log.Info("ingestion started", logger.String("source", string(doc.SourceType)))

	if err := i.processOne(ctx, doc, log); err != nil {
		stage := StagePersistence
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
			err = se.err
		}

		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
		defer cancel()
		if ferr := i.tracker.Fail(failCtx, doc.ID, stage, err); ferr != nil {
			log.Error("could not record failure", logger.Error(ferr))
		}
		log.Error("ingestion failed", logger.String("stage", stage), logger.Error(err), logger.Duration("elapsed", time.Since(started)))
		return err
	}

	log.Info("ingestion completed", logger.Duration("elapsed", time.Since(started)))
	return nil
}

func (i *DocumentIngestor) processOne(ctx context.Context, doc *models.Document, log logger.Logger) error {
	// partitioning
	raw, err := i.fetch(ctx, doc)
	if err != nil {
		return failAt(StageFetch, err)
	}
	elements, err := i.extract(ctx, doc, raw)
	if err != nil {
		return failAt(StageExtraction, err)
	}

	// chunking
	if err := i.tracker.Transition(ctx, doc.ID, models.StatusChunking, elementCounts(elements)); err != nil {
		return failAt(StageSegmentation, err)
	}
	segments, err := i.segmenter.Segment(elements)
	if err != nil {
		return failAt(StageSegmentation, err)
	}
	log.Debug("segmented", logger.Int("elements", len(elements)), logger.Int("chunks", len(segments)))

	// summarising
	if err := i.tracker.Transition(ctx, doc.ID, models.StatusSummarising, models.StatusDetail{"chunks_total": len(segments)}); err != nil {
		return failAt(StageEnrichment, err)
	}
	chunks, failures := i.enrich(ctx, doc, segments, log)
	if err := ctx.Err(); err != nil {
		return failAt(StageEnrichment, err)
	}

	// vectorization
	if err := i.tracker.Transition(ctx, doc.ID, models.StatusVectorization, models.StatusDetail{
		"chunks_summarised":   len(chunks),
		"enrichment_failures": failures,
	}); err != nil {
		return failAt(StageEmbedding, err)
	}
	texts := make([]string, len(chunks))
	for k := range chunks {
		texts[k] = chunks[k].Content
	}
	vectors, batches, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return failAt(StageEmbedding, err)
	}
	for k := range chunks {
		chunks[k].Embedding = vectors[k]
	}

	if err := i.persist(ctx, doc.ID, chunks); err != nil {
		return failAt(StagePersistence, err)
	}

	if err := i.tracker.Transition(ctx, doc.ID, models.StatusCompleted, models.StatusDetail{
		"embedding_batches": batches,
		"chunks_persisted":  len(chunks),
	}); err != nil {
		return failAt(StagePersistence, err)
	}
	return nil
}

func (i *DocumentIngestor) fetch(ctx context.Context, doc *models.Document) ([]byte, error) {
	fetchCtx, cancel := withTimeout(ctx, i.cfg.FetchTimeout)
	defer cancel()

	var (
		raw []byte
		err error
	)
	switch doc.SourceType {
	case models.SourceFile:
		raw, err = i.obj.GetFile(fetchCtx, doc.Location)
	case models.SourceURL:
		raw, err = i.pages.Fetch(fetchCtx, doc.Location)
	default:
		err = fmt.Errorf("unknown source type %q", doc.SourceType)
	}
	if err != nil {
		return nil, &FetchError{Location: doc.Location, Err: err}
	}
	return raw, nil
}

func (i *DocumentIngestor) extract(ctx context.Context, doc *models.Document, raw []byte) ([]core.Element, error) {
	extractCtx, cancel := withTimeout(ctx, i.cfg.ExtractTimeout)
	defer cancel()

	elements, err := i.extractor.Extract(extractCtx, core.ExtractRequest{
		Data:        raw,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		Source:      doc.SourceType,
	})
	if err != nil {
		return nil, &ExtractionError{DocumentID: doc.ID, Err: err}
	}
	if len(elements) == 0 {
		return nil, &ExtractionError{DocumentID: doc.ID, Err: ErrNoContent}
	}
	return elements, nil
}

// enrich classifies and enriches every segment. Enrichment failures fall back to the
// segment's plain text; progress is merged into status detail after each model call.
func (i *DocumentIngestor) enrich(ctx context.Context, doc *models.Document, segments []Segment, log logger.Logger) ([]models.DocumentChunk, int) {
	chunks := make([]models.DocumentChunk, 0, len(segments))
	failures := 0

	for _, seg := range segments {
		c := Classify(seg, doc.SourceType)

		content, err := i.enricher.Enrich(ctx, seg.Index, c)
		if err != nil {
			failures++
			content = c.Text
			log.Warn("enrichment failed, using plain text", logger.Int("chunk", seg.Index), logger.Error(err))
		}
		if strings.TrimSpace(content) == "" {
			content = placeholderText(seg)
		}

		chunks = append(chunks, models.DocumentChunk{
			ID:         i.newID(),
			DocumentID: doc.ID,
			ChunkIndex: seg.Index,
			Content:    content,
			Original: models.OriginalContent{
				Text:   c.Text,
				Tables: c.Tables,
				Images: imagePayloads(c.Images),
			},
			ContentTypes: c.ContentTypes,
			PageNumber:   seg.PageNumber,
			CharCount:    seg.CharCount,
		})

		if c.HasMedia() {
			if err := i.tracker.Merge(ctx, doc.ID, models.StatusDetail{
				"chunks_summarised":   len(chunks),
				"enrichment_failures": failures,
			}); err != nil {
				log.Warn("progress update failed", logger.Error(err))
			}
		}
	}
	return chunks, failures
}

func (i *DocumentIngestor) persist(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	persistCtx, cancel := withTimeout(ctx, i.cfg.PersistTimeout)
	defer cancel()

	if err := i.db.ReplaceDocumentChunks(persistCtx, documentID, chunks); err != nil {
		return &PersistenceError{DocumentID: documentID, Err: err}
	}
	return nil
}

// placeholderText stands in for a segment with no words, such as a lone image whose
// summary failed, so the embedder never receives empty input.
func placeholderText(seg Segment) string {
	images := 0
	for _, e := range seg.Elements {
		if e.Kind == core.ElementImage {
			images++
		}
	}
	if images == 0 {
		return fmt.Sprintf("Untitled content from page %d", seg.PageNumber)
	}
	return fmt.Sprintf("%d image(s) from page %d", images, seg.PageNumber)
}

func elementCounts(elements []core.Element) models.StatusDetail {
	var text, tables, images int
	for _, e := range elements {
		switch e.Kind {
		case core.ElementTable:
			tables++
		case core.ElementImage:
			images++
		default:
			text++
		}
	}
	return models.StatusDetail{
		"elements_total": len(elements),
		"text_elements":  text,
		"tables":         tables,
		"images":         images,
	}
}

func imagePayloads(images []core.ImageInput) []string {
	if len(images) == 0 {
		return nil
	}
	out := make([]string, len(images))
	for k, img := range images {
		out[k] = img.Base64
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
