package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/contexta-ingest/internal/api/middlewares"
	ingestor "github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
	"github.com/markdave123-py/contexta-ingest/internal/services"
)

const maxUploadBytes = 64 << 20

// DocumentService is what the handlers need from the submission layer.
type DocumentService interface {
	SubmitUpload(ctx context.Context, req services.UploadRequest) (*models.Document, error)
	SubmitURL(ctx context.Context, projectID, userID, rawURL string) (*models.Document, error)
	Reprocess(ctx context.Context, userID, documentID string) (*models.Document, error)
	Get(ctx context.Context, userID, documentID string) (*services.DocumentView, error)
}

type DocumentHandler struct {
	docs DocumentService
	log  logger.Logger
}

func NewDocumentHandler(docs DocumentService, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, log: log}
}

// UploadDocument stores a multipart file and queues it for ingestion.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	doc, err := h.docs.SubmitUpload(r.Context(), services.UploadRequest{
		ProjectID:   chi.URLParam(r, "projectID"),
		UserID:      userID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.fail(w, "upload", err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

type submitURLRequest struct {
	URL string `json:"url"`
}

// SubmitURL registers a web page for ingestion.
func (h *DocumentHandler) SubmitURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	var req submitURLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	doc, err := h.docs.SubmitURL(r.Context(), chi.URLParam(r, "projectID"), userID, req.URL)
	if err != nil {
		h.fail(w, "submit url", err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	view, err := h.docs.Get(r.Context(), userID, chi.URLParam(r, "documentID"))
	if err != nil {
		h.fail(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found in context", http.StatusUnauthorized)
		return
	}

	doc, err := h.docs.Reprocess(r.Context(), userID, chi.URLParam(r, "documentID"))
	if err != nil {
		h.fail(w, "reprocess", err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DocumentHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(op+" failed", logger.Error(err))
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, strings.TrimSpace(err.Error()), status)
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingestor.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
