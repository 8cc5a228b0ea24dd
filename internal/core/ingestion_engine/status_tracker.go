package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// pipelineOrder is the forward path a document walks.
var pipelineOrder = []models.IngestionStatus{
	models.StatusUploading,
	models.StatusQueued,
	models.StatusPartitioning,
	models.StatusChunking,
	models.StatusSummarising,
	models.StatusVectorization,
	models.StatusCompleted,
}

func stepOf(s models.IngestionStatus) int {
	for i, st := range pipelineOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether from -> to is allowed: one step forward, any
// non-terminal state to failed, or a fresh submission to queued.
func CanTransition(from, to models.IngestionStatus) bool {
	switch {
	case to == models.StatusFailed:
		return stepOf(from) >= 0 && !from.IsTerminal()
	case to == models.StatusQueued:
		return from == models.StatusUploading || from.IsTerminal()
	}
	f, t := stepOf(from), stepOf(to)
	return f >= 0 && t == f+1
}

// StatusTracker persists document status and merges status detail additively.
type StatusTracker struct {
	db    core.DbClient
	cache core.StatusCache
	log   logger.Logger
	now   func() time.Time
}

func NewStatusTracker(db core.DbClient, cache core.StatusCache, log logger.Logger) *StatusTracker {
	return &StatusTracker{db: db, cache: cache, log: log, now: time.Now}
}

// Transition moves a document to `to` and merges detail into its status detail.
// Moving to queued starts a new run and clears the previous run's detail.
func (t *StatusTracker) Transition(ctx context.Context, documentID string, to models.IngestionStatus, detail models.StatusDetail) error {
	doc, err := t.load(ctx, documentID)
	if err != nil {
		return err
	}
	if !CanTransition(doc.Status, to) {
		return &TransitionError{From: doc.Status, To: to}
	}

	base := doc.StatusDetail
	if to == models.StatusQueued {
		base = nil
	}
	return t.write(ctx, documentID, doc.Status, to, mergeDetail(base, detail))
}

// Merge adds detail keys without changing status.
func (t *StatusTracker) Merge(ctx context.Context, documentID string, detail models.StatusDetail) error {
	doc, err := t.load(ctx, documentID)
	if err != nil {
		return err
	}
	return t.write(ctx, documentID, doc.Status, doc.Status, mergeDetail(doc.StatusDetail, detail))
}

// Fail moves a document to failed, recording the cause and the stage that raised it.
func (t *StatusTracker) Fail(ctx context.Context, documentID, stage string, cause error) error {
	return t.Transition(ctx, documentID, models.StatusFailed, models.StatusDetail{
		"error":        cause.Error(),
		"failed_stage": stage,
	})
}

func (t *StatusTracker) load(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := t.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	return doc, nil
}

// write is conditional on the status read by the caller, so two writers that both passed
// CanTransition cannot both win.
func (t *StatusTracker) write(ctx context.Context, documentID string, from, status models.IngestionStatus, detail models.StatusDetail) error {
	err := t.db.UpdateDocumentStatus(ctx, documentID, from, status, detail)
	if errors.Is(err, core.ErrStatusChanged) {
		return fmt.Errorf("%w (%v)", &TransitionError{From: from, To: status}, err)
	}
	if err != nil {
		return fmt.Errorf("update status of %s to %s: %w", documentID, status, err)
	}

	if t.cache != nil {
		snap := models.StatusSnapshot{DocumentID: documentID, Status: status, Detail: detail, UpdatedAt: t.now().UTC()}
		if err := t.cache.SetStatus(ctx, snap); err != nil {
			t.log.Warn("status cache write failed", logger.String("document_id", documentID), logger.Error(err))
		}
	}
	return nil
}

func mergeDetail(base, add models.StatusDetail) models.StatusDetail {
	out := make(models.StatusDetail, len(base)+len(add))
	maps.Copy(out, base)
	maps.Copy(out, add)
	return out
}
