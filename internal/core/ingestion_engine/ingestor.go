package ingestion_engine

import "context"

// Ingestor processes one queued document end to end.
type Ingestor interface {
	Ingest(ctx context.Context, documentID string) error
}
