package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var blockTags = map[string]bool{
	"p": true, "li": true, "pre": true, "blockquote": true, "dd": true, "dt": true,
	"figcaption": true, "caption": true, "address": true,
}

func parseHTML(ctx context.Context, path string, req core.ExtractRequest) ([]core.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return htmlElements(ctx, doc, req.Source == models.SourceFile), nil
}

// htmlElements walks the body in document order. Inline data-URI images are kept only
// when keepImages is set, which callers leave off for crawled pages.
func htmlElements(ctx context.Context, doc *goquery.Document, keepImages bool) []core.Element {
	doc.Find("script, style, noscript, template, svg, iframe").Remove()

	w := &htmlWalker{ctx: ctx, keepImages: keepImages}
	if title := collapse(doc.Find("head > title").First().Text()); title != "" {
		w.out = append(w.out, core.Element{Kind: core.ElementTitle, Text: title})
	}

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	w.walk(root)
	w.flushLoose()
	return w.out
}

type htmlWalker struct {
	ctx        context.Context
	keepImages bool
	out        []core.Element
	loose      []string
}

func (w *htmlWalker) walk(s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if w.ctx.Err() != nil {
			return
		}
		switch name := goquery.NodeName(c); {
		case name == "#text":
			if t := collapse(c.Text()); t != "" {
				w.loose = append(w.loose, t)
			}
		case len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6':
			w.flushLoose()
			if t := collapse(c.Text()); t != "" {
				w.out = append(w.out, core.Element{Kind: core.ElementTitle, Text: t})
			}
		case name == "table":
			w.flushLoose()
			w.table(c)
		case name == "img":
			w.flushLoose()
			w.image(c)
		case name == "br":
		case blockTags[name]:
			w.flushLoose()
			if t := collapse(c.Text()); t != "" {
				w.out = append(w.out, core.Element{Kind: core.ElementText, Text: t})
			}
			c.Find("img").Each(func(_ int, img *goquery.Selection) { w.image(img) })
		default:
			w.walk(c)
		}
	})
}

func (w *htmlWalker) flushLoose() {
	if len(w.loose) > 0 {
		w.out = append(w.out, core.Element{Kind: core.ElementText, Text: strings.Join(w.loose, " ")})
		w.loose = nil
	}
}

func (w *htmlWalker) table(s *goquery.Selection) {
	var rows [][]string
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, collapse(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	markup, err := goquery.OuterHtml(s)
	if err != nil {
		markup = ""
	}
	text := tableText(rows)
	if strings.TrimSpace(text) == "" && markup == "" {
		return
	}
	w.out = append(w.out, core.Element{Kind: core.ElementTable, Text: text, HTML: markup})
}

func (w *htmlWalker) image(s *goquery.Selection) {
	if !w.keepImages {
		return
	}
	src, _ := s.Attr("src")
	mimeType, payload, ok := parseDataURI(src)
	if !ok {
		return
	}
	w.out = append(w.out, core.Element{Kind: core.ElementImage, ImageBase64: payload, MIMEType: mimeType})
}

// parseDataURI accepts data:image/<type>;base64,<payload>.
func parseDataURI(src string) (mimeType, payload string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(src), "data:")
	if !found {
		return "", "", false
	}
	meta, data, found := strings.Cut(rest, ",")
	if !found || data == "" {
		return "", "", false
	}
	mimeType, enc, _ := strings.Cut(meta, ";")
	if !strings.HasPrefix(mimeType, "image/") || !strings.EqualFold(enc, "base64") {
		return "", "", false
	}
	return mimeType, data, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
