package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/core/extraction"
	ingestor "github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/contexta-ingest/internal/core/object-client"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
	"github.com/markdave123-py/contexta-ingest/internal/queue"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("document not found")
)

// DocumentService handles submissions: it creates document rows, stores bytes and
// hands queued documents to the ingestion queue.
type DocumentService struct {
	db      core.DbClient
	storage core.ObjectClient
	tracker *ingestor.StatusTracker
	queue   queue.Enqueuer
	cache   core.StatusCache
	log     logger.Logger
	newID   func() string
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, tracker *ingestor.StatusTracker, q queue.Enqueuer, cache core.StatusCache, log logger.Logger) *DocumentService {
	return &DocumentService{
		db:      db,
		storage: storage,
		tracker: tracker,
		queue:   q,
		cache:   cache,
		log:     log,
		newID:   uuid.NewString,
	}
}

// UploadRequest is one file submitted to a project.
type UploadRequest struct {
	ProjectID   string
	UserID      string
	FileName    string
	ContentType string
	Body        io.Reader
}

// DocumentView is a document with its chunk count, as returned by the API.
type DocumentView struct {
	models.Document
	ChunkCount int `json:"chunk_count"`
}

// SubmitUpload stores the file and queues the document for ingestion.
func (s *DocumentService) SubmitUpload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	req.FileName = filepath.Base(strings.TrimSpace(req.FileName))
	if req.ProjectID == "" || req.FileName == "" || req.FileName == "." || req.Body == nil {
		return nil, fmt.Errorf("%w: project and file are required", ErrInvalidInput)
	}
	if _, _, err := extraction.ResolveFormat(models.SourceFile, req.FileName, req.ContentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	id := s.newID()
	now := time.Now().UTC()
	doc := &models.Document{
		ID:          id,
		ProjectID:   req.ProjectID,
		UserID:      req.UserID,
		SourceType:  models.SourceFile,
		Location:    objectclient.DocumentKey(req.ProjectID, id, req.FileName),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Status:      models.StatusUploading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.storage.UploadFile(ctx, doc.Location, req.Body, req.ContentType); err != nil {
		s.markFailed(ctx, id, "upload", err)
		return nil, fmt.Errorf("upload %s: %w", doc.Location, err)
	}

	if err := s.queueDocument(ctx, id, nil); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

// SubmitURL registers a web page and queues it for ingestion.
func (s *DocumentService) SubmitURL(ctx context.Context, projectID, userID, rawURL string) (*models.Document, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) url", ErrInvalidInput, rawURL)
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:          s.newID(),
		ProjectID:   projectID,
		UserID:      userID,
		SourceType:  models.SourceURL,
		Location:    u.String(),
		FileName:    u.Host + u.EscapedPath(),
		ContentType: "text/html",
		Status:      models.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	if err := s.enqueue(ctx, doc.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reprocess queues a completed or failed document for a fresh run.
func (s *DocumentService) Reprocess(ctx context.Context, userID, documentID string) (*models.Document, error) {
	if _, err := s.owned(ctx, userID, documentID); err != nil {
		return nil, err
	}
	if err := s.queueDocument(ctx, documentID, models.StatusDetail{"reprocess": true}); err != nil {
		return nil, err
	}
	return s.reload(ctx, documentID)
}

// Get returns the document with its chunk count. Status comes from the cache when present.
func (s *DocumentService) Get(ctx context.Context, userID, documentID string) (*DocumentView, error) {
	doc, err := s.owned(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		snap, err := s.cache.GetStatus(ctx, documentID)
		if err != nil {
			s.log.Warn("status cache read failed", logger.String("document_id", documentID), logger.Error(err))
		} else if snap != nil {
			doc.Status = snap.Status
			doc.StatusDetail = snap.Detail
		}
	}

	n, err := s.db.CountDocumentChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return &DocumentView{Document: *doc, ChunkCount: n}, nil
}

func (s *DocumentService) owned(ctx context.Context, userID, documentID string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil || (userID != "" && doc.UserID != userID) {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *DocumentService) queueDocument(ctx context.Context, documentID string, detail models.StatusDetail) error {
	if err := s.tracker.Transition(ctx, documentID, models.StatusQueued, detail); err != nil {
		return err
	}
	return s.enqueue(ctx, documentID)
}

func (s *DocumentService) enqueue(ctx context.Context, documentID string) error {
	if err := s.queue.Enqueue(ctx, documentID); err != nil {
		s.markFailed(ctx, documentID, "enqueue", err)
		return fmt.Errorf("enqueue %s: %w", documentID, err)
	}
	return nil
}

func (s *DocumentService) markFailed(ctx context.Context, documentID, stage string, cause error) {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.tracker.Fail(failCtx, documentID, stage, cause); err != nil {
		s.log.Error("could not mark document failed", logger.String("document_id", documentID), logger.Error(err))
	}
}

func (s *DocumentService) reload(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}
