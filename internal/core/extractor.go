package core

import (
	"context"
	"unicode/utf8"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// ElementKind is the closed set of content element types an extractor may emit.
type ElementKind int

const (
	ElementText ElementKind = iota + 1
	ElementTitle
	ElementTable
	ElementImage
	ElementOther
)

func (k ElementKind) String() string {
	switch k {
	case ElementText:
		return "text"
	case ElementTitle:
		return "title"
	case ElementTable:
		return "table"
	case ElementImage:
		return "image"
	case ElementOther:
		return "other"
	default:
		return "unknown"
	}
}

func (k ElementKind) Valid() bool {
	return k >= ElementText && k <= ElementOther
}

// Element is one typed piece of extracted content.
//
// Text:        payload for text, title and other; plain-text form of a table.
// HTML:        table markup.
// ImageBase64: image payload, with MIMEType.
// Page:        1-based page or slide number, 0 when unknown.
type Element struct {
	Kind        ElementKind
	Text        string
	HTML        string
	ImageBase64 string
	MIMEType    string
	Page        int
}

// Chars is the element's contribution to a segment's character count.
// Images count zero; tables count their plain text, or markup when that is all they carry.
func (e Element) Chars() int {
	switch e.Kind {
	case ElementImage:
		return 0
	case ElementTable:
		if e.Text == "" {
			return utf8.RuneCountInString(e.HTML)
		}
	}
	return utf8.RuneCountInString(e.Text)
}

// ExtractRequest is a raw document handed to a ContentExtractor.
type ExtractRequest struct {
	Data        []byte
	FileName    string
	ContentType string
	Source      models.SourceType
}

// ContentExtractor turns raw document bytes into an ordered element sequence.
type ContentExtractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]Element, error)
}
