package ingestion_engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

type memDB struct {
	mu       sync.Mutex
	docs     map[string]*models.Document
	chunks   map[string][]models.DocumentChunk
	history  map[string][]models.IngestionStatus
	failSave error
}

func newMemDB() *memDB {
	return &memDB{
		docs:    map[string]*models.Document{},
		chunks:  map[string][]models.DocumentChunk{},
		history: map[string][]models.IngestionStatus{},
	}
}

func (m *memDB) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return fmt.Errorf("duplicate document %s", doc.ID)
	}
	cp := *doc
	cp.StatusDetail = maps.Clone(doc.StatusDetail)
	m.docs[doc.ID] = &cp
	m.history[doc.ID] = append(m.history[doc.ID], doc.Status)
	return nil
}

func (m *memDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	cp.StatusDetail = maps.Clone(d.StatusDetail)
	return &cp, nil
}

func (m *memDB) UpdateDocumentStatus(_ context.Context, id string, from, status models.IngestionStatus, detail models.StatusDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	if d.Status != from {
		return core.ErrStatusChanged
	}
	if d.Status != status {
		m.history[id] = append(m.history[id], status)
	}
	d.Status = status
	d.StatusDetail = maps.Clone(detail)
	return nil
}

func (m *memDB) ReplaceDocumentChunks(_ context.Context, documentID string, chunks []models.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.chunks[documentID] = append([]models.DocumentChunk(nil), chunks...)
	return nil
}

func (m *memDB) CountDocumentChunks(_ context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks[documentID]), nil
}

func (m *memDB) Close() error { return nil }

func (m *memDB) doc(id string) *models.Document {
	d, _ := m.GetDocumentByID(context.Background(), id)
	return d
}

func (m *memDB) statuses(id string) []models.IngestionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.IngestionStatus(nil), m.history[id]...)
}

type memObjects struct {
	files map[string][]byte
}

func (o *memObjects) UploadFile(_ context.Context, key string, data io.Reader, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	o.files[key] = buf.Bytes()
	return nil
}

func (o *memObjects) GetFile(_ context.Context, key string) ([]byte, error) {
	b, ok := o.files[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return b, nil
}

type fakePages struct {
	pages map[string][]byte
}

func (p *fakePages) Fetch(_ context.Context, url string) ([]byte, error) {
	b, ok := p.pages[url]
	if !ok {
		return nil, errors.New("404")
	}
	return b, nil
}

type fakeExtractor struct {
	ExtractFn func(ctx context.Context, req core.ExtractRequest) ([]core.Element, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, req core.ExtractRequest) ([]core.Element, error) {
	return f.ExtractFn(ctx, req)
}

type fakeLLM struct {
	mu         sync.Mutex
	calls      int
	lastPrompt string
	lastImages []core.ImageInput
	GenerateFn func(ctx context.Context, system, user string, images []core.ImageInput) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, system, user string, images []core.ImageInput) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastPrompt = user
	f.lastImages = images
	f.mu.Unlock()
	if f.GenerateFn == nil {
		return "summary", nil
	}
	return f.GenerateFn(ctx, system, user, images)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	dim     int
	EmbedFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.mu.Unlock()
	if f.EmbedFn != nil {
		return f.EmbedFn(ctx, texts)
	}
	dim := f.dim
	if dim == 0 {
		dim = 3
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

type memCache struct {
	mu    sync.Mutex
	snaps map[string]models.StatusSnapshot
}

func newMemCache() *memCache {
	return &memCache{snaps: map[string]models.StatusSnapshot{}}
}

func (c *memCache) SetStatus(_ context.Context, snap models.StatusSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[snap.DocumentID] = snap
	return nil
}

func (c *memCache) GetStatus(_ context.Context, id string) (*models.StatusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snaps[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func textEl(n int) core.Element {
	return core.Element{Kind: core.ElementText, Text: strings.Repeat("a", n)}
}

func titleEl(s string) core.Element {
	return core.Element{Kind: core.ElementTitle, Text: s}
}

func tableEl(text, html string) core.Element {
	return core.Element{Kind: core.ElementTable, Text: text, HTML: html}
}

func imageEl() core.Element {
	return core.Element{Kind: core.ElementImage, ImageBase64: "aW1n", MIMEType: "image/png"}
}
