package models

import (
	"time"
)

// SourceType tells where a document's bytes come from.
type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
)

// IngestionStatus is the lifecycle state of a document inside the pipeline.
type IngestionStatus string

const (
	StatusUploading     IngestionStatus = "uploading"
	StatusQueued        IngestionStatus = "queued"
	StatusPartitioning  IngestionStatus = "partitioning"
	StatusChunking      IngestionStatus = "chunking"
	StatusSummarising   IngestionStatus = "summarising"
	StatusVectorization IngestionStatus = "vectorization"
	StatusCompleted     IngestionStatus = "completed"
	StatusFailed        IngestionStatus = "failed"
)

// IsTerminal reports whether no pipeline stage will move the status further.
func (s IngestionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ContentType tags what kinds of media a chunk was built from.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentTable ContentType = "table"
	ContentImage ContentType = "image"
)

// StatusDetail carries stage metrics; stages merge their own keys into it.
type StatusDetail map[string]any

// Document represents a user-uploaded file or a crawled URL.
type Document struct {
	ID           string          `db:"id" json:"id"`
	ProjectID    string          `db:"project_id" json:"project_id"`
	UserID       string          `db:"user_id" json:"user_id"`
	SourceType   SourceType      `db:"source_type" json:"source_type"`
	Location     string          `db:"location" json:"location"` // blob key or URL
	FileName     string          `db:"file_name" json:"file_name"`
	ContentType  string          `db:"content_type" json:"content_type"`
	Status       IngestionStatus `db:"status" json:"status"`
	StatusDetail StatusDetail    `db:"status_detail" json:"status_detail"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// OriginalContent is the structured source of a chunk, stored as jsonb.
type OriginalContent struct {
	Text   string   `json:"text"`
	Tables []string `json:"tables,omitempty"`
	Images []string `json:"images,omitempty"` // base64
}

// DocumentChunk is one embedded retrieval unit of a document.
type DocumentChunk struct {
	ID           string          `db:"id" json:"id"`
	DocumentID   string          `db:"document_id" json:"document_id"`
	ChunkIndex   int             `db:"chunk_index" json:"chunk_index"`
	Content      string          `db:"content" json:"content"` // enriched text
	Original     OriginalContent `db:"original_content" json:"original_content"`
	ContentTypes []ContentType   `db:"content_types" json:"content_types"`
	PageNumber   int             `db:"page_number" json:"page_number"`
	CharCount    int             `db:"char_count" json:"char_count"`
	Embedding    []float32       `db:"embedding" json:"-"` // pgvector column
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// StatusSnapshot is the cached view of a document's progress.
type StatusSnapshot struct {
	DocumentID string          `json:"document_id"`
	Status     IngestionStatus `json:"status"`
	Detail     StatusDetail    `json:"detail"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
