package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

const TaskTypeDocumentIngest = "document:ingest"

// Enqueuer schedules one ingestion run for a document.
type Enqueuer interface {
	Enqueue(ctx context.Context, documentID string) error
}

// IngestPayload is the body of a document:ingest task.
type IngestPayload struct {
	DocumentID string `json:"document_id"`
}

// NewIngestTask builds the asynq task for a document. Tasks get fresh ids: a failed run
// stays archived under its own id and a reprocess enqueues a new task. Duplicate
// deliveries are harmless because Ingest only runs queued documents.
func NewIngestTask(documentID string, opts ...asynq.Option) (*asynq.Task, error) {
	if documentID == "" {
		return nil, errors.New("empty document id")
	}
	payload, err := json.Marshal(IngestPayload{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("marshal ingest payload: %w", err)
	}
	return asynq.NewTask(TaskTypeDocumentIngest, payload, opts...), nil
}

func decodeIngestPayload(raw []byte) (IngestPayload, error) {
	var p IngestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("unmarshal ingest payload: %w", err)
	}
	if p.DocumentID == "" {
		return p, errors.New("ingest payload without document_id")
	}
	return p, nil
}

// runIngest calls the ingestor and folds the outcomes every dispatcher treats alike:
// a document that is no longer queued is a no-op.
func runIngest(ctx context.Context, ing ingestion_engine.Ingestor, log logger.Logger, documentID string) error {
	err := ing.Ingest(ctx, documentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ingestion_engine.ErrNotQueued):
		log.Info("ingest task skipped", logger.String("document_id", documentID), logger.String("reason", err.Error()))
		return nil
	default:
		return err
	}
}
