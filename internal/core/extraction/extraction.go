package extraction

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format is the parser a document is dispatched to.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatPPTX     Format = "pptx"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatLegacy   Format = "legacy"
)

var byExtension = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".pptx":     FormatPPTX,
	".txt":      FormatText,
	".text":     FormatText,
	".log":      FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".xhtml":    FormatHTML,
	".doc":      FormatLegacy,
	".rtf":      FormatLegacy,
	".odt":      FormatLegacy,
}

var byMediaType = map[string]struct {
	format Format
	ext    string
}{
	"application/pdf": {FormatPDF, ".pdf"},

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {FormatDOCX, ".docx"},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {FormatPPTX, ".pptx"},

	"text/plain":                              {FormatText, ".txt"},
	"text/markdown":                           {FormatMarkdown, ".md"},
	"text/x-markdown":                         {FormatMarkdown, ".md"},
	"text/html":                               {FormatHTML, ".html"},
	"application/xhtml+xml":                   {FormatHTML, ".html"},
	"application/msword":                      {FormatLegacy, ".doc"},
	"application/rtf":                         {FormatLegacy, ".rtf"},
	"text/rtf":                                {FormatLegacy, ".rtf"},
	"application/vnd.oasis.opendocument.text": {FormatLegacy, ".odt"},
}

// ResolveFormat picks a parser for a document. URL sources are always HTML; files
// resolve by extension first and declared media type second.
func ResolveFormat(source models.SourceType, fileName, contentType string) (Format, string, error) {
	if source == models.SourceURL {
		return FormatHTML, ".html", nil
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if f, ok := byExtension[ext]; ok {
		return f, ext, nil
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if m, ok := byMediaType[strings.ToLower(mt)]; ok {
			return m.format, m.ext, nil
		}
	}
	return "", "", fmt.Errorf("%w: name %q, type %q", ErrUnsupportedFormat, fileName, contentType)
}

type parseFunc func(ctx context.Context, path string, req core.ExtractRequest) ([]core.Element, error)

var _ core.ContentExtractor = (*Extractor)(nil)

// Extractor dispatches documents to a per-format parser working on a temporary copy.
type Extractor struct {
	tempDir string
	log     logger.Logger
	parsers map[Format]parseFunc
}

type Option func(*Extractor)

// WithTempDir sets where temporary copies are written (default os.TempDir()).
func WithTempDir(dir string) Option {
	return func(e *Extractor) { e.tempDir = dir }
}

func NewExtractor(log logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		log: log,
		parsers: map[Format]parseFunc{
			FormatPDF:      pdfParser{log: log}.parse,
			FormatDOCX:     parseDOCX,
			FormatPPTX:     parsePPTX,
			FormatText:     parsePlainText,
			FormatMarkdown: parseMarkdown,
			FormatHTML:     parseHTML,
			FormatLegacy:   parseLegacy,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, req core.ExtractRequest) ([]core.Element, error) {
	format, ext, err := ResolveFormat(req.Source, req.FileName, req.ContentType)
	if err != nil {
		return nil, err
	}
	parse, ok := e.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	var elements []core.Element
	err = withTempCopy(e.tempDir, req.Data, ext, func(path string) error {
		var perr error
		elements, perr = parse(ctx, path, req)
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.log.Debug("extracted elements",
		logger.String("format", string(format)),
		logger.Int("elements", len(elements)))
	return elements, nil
}

// withTempCopy writes data to a temporary file, runs fn on its path and removes the file
// on every return path.
func withTempCopy(dir string, data []byte, ext string, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, "contexta-*"+ext)
	if err != nil {
		return fmt.Errorf("create temp copy: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp copy: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp copy: %w", err)
	}
	return fn(path)
}
