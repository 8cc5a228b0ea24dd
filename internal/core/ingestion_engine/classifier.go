package ingestion_engine

import (
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// Classified is a segment split by media.
type Classified struct {
	Text         string
	Tables       []string
	Images       []core.ImageInput
	ContentTypes []models.ContentType
}

func (c Classified) HasMedia() bool {
	return len(c.Tables) > 0 || len(c.Images) > 0
}

// Classify separates a segment into plain text, table representations and images.
// Table plain text is part of Text so table-only segments still carry words. Images are
// dropped for URL sources.
func Classify(seg Segment, source models.SourceType) Classified {
	var (
		c     Classified
		parts []string
	)
	for _, e := range seg.Elements {
		switch e.Kind {
		case core.ElementText, core.ElementTitle, core.ElementOther:
			if t := strings.TrimSpace(e.Text); t != "" {
				parts = append(parts, t)
			}
		case core.ElementTable:
			if t := strings.TrimSpace(e.Text); t != "" {
				parts = append(parts, t)
			}
			if e.HTML != "" {
				c.Tables = append(c.Tables, e.HTML)
			} else {
				c.Tables = append(c.Tables, e.Text)
			}
		case core.ElementImage:
			if source == models.SourceURL {
				continue
			}
			c.Images = append(c.Images, core.ImageInput{MIMEType: e.MIMEType, Base64: e.ImageBase64})
		}
	}
	c.Text = strings.Join(parts, "\n\n")

	c.ContentTypes = []models.ContentType{models.ContentText}
	if len(c.Tables) > 0 {
		c.ContentTypes = append(c.ContentTypes, models.ContentTable)
	}
	if len(c.Images) > 0 {
		c.ContentTypes = append(c.ContentTypes, models.ContentImage)
	}
	return c
}
