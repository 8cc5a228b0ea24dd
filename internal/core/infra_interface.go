package core

import (
	"context"
	"errors"
	"io"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// ErrStatusChanged is returned by a conditional status update whose expected status no
// longer matches the stored one.
var ErrStatusChanged = errors.New("document status changed concurrently")

// DbClient defines all persistence operations the pipeline and API need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	// GetDocumentByID returns nil, nil when the document does not exist.
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	// UpdateDocumentStatus overwrites status and status detail if the stored status is still
	// from, and returns ErrStatusChanged otherwise.
	UpdateDocumentStatus(ctx context.Context, id string, from, to models.IngestionStatus, detail models.StatusDetail) error

	// ReplaceDocumentChunks deletes the document's chunks and inserts the new set in one transaction.
	ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error
	CountDocumentChunks(ctx context.Context, documentID string) (int, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
}

// PageFetcher downloads the raw HTML of a URL source.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusCache mirrors the latest status snapshot of each document.
type StatusCache interface {
	SetStatus(ctx context.Context, snap models.StatusSnapshot) error
	// GetStatus returns nil, nil on a cache miss.
	GetStatus(ctx context.Context, documentID string) (*models.StatusSnapshot, error)
}
