package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func parsePPTX(ctx context.Context, path string, _ core.ExtractRequest) ([]core.Element, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()
	return pptxElements(ctx, &zr.Reader)
}

type slideRef struct {
	num  int
	name string
}

func pptxElements(ctx context.Context, zr *zip.Reader) ([]core.Element, error) {
	var slides []slideRef
	for _, f := range zr.File {
		if m := slidePart.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slideRef{num: n, name: f.Name})
		}
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("pptx has no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var out []core.Element
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := zipEntry(zr, s.name)
		if err != nil {
			return nil, err
		}
		els, err := slideElements(zr, s.name, raw, s.num)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		out = append(out, els...)
	}
	return out, nil
}

// slideElements emits one element per shape: title placeholders as titles, other
// text shapes as text, a:tbl frames as tables and pictures as images.
func slideElements(zr *zip.Reader, part string, raw []byte, page int) ([]core.Element, error) {
	rels := partRels(zr, part)
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var (
		out     []core.Element
		inShape bool
		isTitle bool
		paras   []string
		para    strings.Builder
		table   *tableBuilder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				inShape, isTitle, paras = true, false, nil
			case "ph":
				if typ := attr(t, "type"); typ == "title" || typ == "ctrTitle" {
					isTitle = true
				}
			case "tbl":
				table = &tableBuilder{}
			case "tr":
				if table != nil {
					table.startRow()
				}
			case "tc":
				if table != nil {
					table.startCell()
				}
			case "p":
				para.Reset()
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return nil, err
				}
				if table != nil {
					table.write(s + " ")
				} else {
					para.WriteString(s)
				}
			case "blip":
				if img, ok := embeddedImage(zr, rels, attr(t, "embed"), page); ok {
					out = append(out, img)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inShape && table == nil {
					if s := strings.TrimSpace(para.String()); s != "" {
						paras = append(paras, s)
					}
				}
			case "tc":
				if table != nil {
					table.endCell()
				}
			case "tbl":
				if el, ok := table.element(page); ok {
					out = append(out, el)
				}
				table = nil
			case "sp":
				if len(paras) > 0 {
					kind := core.ElementText
					if isTitle {
						kind = core.ElementTitle
					}
					out = append(out, core.Element{Kind: kind, Text: strings.Join(paras, "\n"), Page: page})
				}
				inShape = false
			}
		}
	}
	return out, nil
}
