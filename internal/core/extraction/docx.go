package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

const docxBody = "word/document.xml"

func parseDOCX(ctx context.Context, path string, _ core.ExtractRequest) ([]core.Element, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	body, err := zipEntry(&zr.Reader, docxBody)
	if err != nil {
		return nil, err
	}
	return docxElements(ctx, &zr.Reader, body)
}

func isHeadingStyle(style string) bool {
	s := strings.ToLower(style)
	return strings.HasPrefix(s, "heading") || s == "title" || s == "subtitle"
}

// docxElements walks w:body in document order. Paragraphs become text or title,
// outermost w:tbl become tables and a:blip references become images.
func docxElements(ctx context.Context, zr *zip.Reader, body []byte) ([]core.Element, error) {
	rels := partRels(zr, docxBody)
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		out      []core.Element
		para     strings.Builder
		style    string
		images   []string
		tblDepth int
		table    *tableBuilder
	)

	flushPara := func() {
		text := strings.TrimSpace(para.String())
		if text != "" {
			kind := core.ElementText
			if isHeadingStyle(style) {
				kind = core.ElementTitle
			}
			out = append(out, core.Element{Kind: kind, Text: text})
		}
		for _, id := range images {
			if img, ok := embeddedImage(zr, rels, id, 0); ok {
				out = append(out, img)
			}
		}
		para.Reset()
		style = ""
		images = nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					table = &tableBuilder{}
				}
			case "tr":
				if tblDepth == 1 {
					table.startRow()
				}
			case "tc":
				if tblDepth == 1 {
					table.startCell()
				}
			case "p":
				if tblDepth == 0 {
					para.Reset()
					style = ""
					images = nil
				} else {
					table.write(" ")
				}
			case "pStyle":
				if tblDepth == 0 {
					style = attr(t, "val")
				}
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return nil, fmt.Errorf("parse %s: %w", docxBody, err)
				}
				if tblDepth > 0 {
					table.write(s)
				} else {
					para.WriteString(s)
				}
			case "tab":
				if tblDepth == 0 {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if tblDepth == 0 {
					para.WriteByte('\n')
				} else {
					table.write(" ")
				}
			case "blip":
				if id := attr(t, "embed"); id != "" && tblDepth == 0 {
					images = append(images, id)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if tblDepth == 0 {
					flushPara()
				}
			case "tc":
				if tblDepth == 1 {
					table.endCell()
				}
			case "tbl":
				if tblDepth == 1 {
					if el, ok := table.element(0); ok {
						out = append(out, el)
					}
					table = nil
				}
				tblDepth--
			}
		}
	}
	return out, nil
}
