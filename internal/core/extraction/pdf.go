package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

const (
	// minColumnGap is the horizontal distance, in points, that separates two table cells.
	minColumnGap = 20.0
	// columnTolerance is how far a cell may drift from the cell above it.
	columnTolerance = 8.0
)

// pdfParser reads page text and tables with ledongthuc/pdf and embedded images with pdfcpu.
type pdfParser struct {
	log logger.Logger
}

func (p pdfParser) parse(ctx context.Context, path string, _ core.ExtractRequest) (out []core.Element, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("corrupt pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	images, err := pdfImages(path)
	if err != nil {
		p.log.Warn("pdf image extraction failed, continuing with text", logger.Error(err))
		images = nil
	}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		var tables []pdfTable
		if rows, err := page.GetTextByRow(); err == nil {
			tables = detectTables(rows)
		}
		out = append(out, pageElements(text, tables, i)...)
		out = append(out, images[i]...)
	}
	return out, nil
}

type pdfTable struct {
	rows [][]string
	// raw holds each row's text as the content stream shows it, for locating the
	// table inside the page's plain text.
	raw []string
}

type pdfCell struct {
	x    float64
	text string
}

// detectTables finds runs of two or more rows whose cells line up in the same columns.
func detectTables(rows pdf.Rows) []pdfTable {
	var (
		tables []pdfTable
		run    [][]pdfCell
		raw    []string
	)
	flush := func() {
		if len(run) >= 2 {
			t := pdfTable{raw: raw}
			for _, cells := range run {
				row := make([]string, len(cells))
				for k, c := range cells {
					row[k] = strings.Join(strings.Fields(c.text), " ")
				}
				t.rows = append(t.rows, row)
			}
			tables = append(tables, t)
		}
		run, raw = nil, nil
	}

	for _, row := range rows {
		cells := rowCells(row)
		if len(cells) < 2 {
			flush()
			continue
		}
		if n := len(run); n > 0 && !sameColumns(run[n-1], cells) {
			flush()
		}
		run = append(run, cells)
		raw = append(raw, rowText(row))
	}
	flush()
	return tables
}

func rowCells(row *pdf.Row) []pdfCell {
	var cells []pdfCell
	for _, t := range row.Content {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		if n := len(cells); n > 0 && t.X-cells[n-1].x < minColumnGap {
			cells[n-1].text += t.S
			continue
		}
		cells = append(cells, pdfCell{x: t.X, text: t.S})
	}
	return cells
}

func rowText(row *pdf.Row) string {
	var b strings.Builder
	for _, t := range row.Content {
		b.WriteString(t.S)
	}
	return b.String()
}

func sameColumns(a, b []pdfCell) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if math.Abs(a[k].x-b[k].x) > columnTolerance {
			return false
		}
	}
	return true
}

// pageElements splits the page text into paragraphs and puts each table where its rows
// appear in the text. A table whose rows cannot be found goes after the page's text.
func pageElements(text string, tables []pdfTable, page int) []core.Element {
	var out, trailing []core.Element
	emit := func(s string) {
		for _, block := range splitParagraphs(s) {
			kind := core.ElementText
			if looksLikeHeading(block) {
				kind = core.ElementTitle
			}
			out = append(out, core.Element{Kind: kind, Text: block, Page: page})
		}
	}

	for _, t := range tables {
		el := core.Element{Kind: core.ElementTable, Text: tableText(t.rows), HTML: tableHTML(t.rows), Page: page}
		start, end, ok := locateRows(text, t.raw)
		if !ok {
			trailing = append(trailing, el)
			continue
		}
		emit(text[:start])
		out = append(out, el)
		text = text[end:]
	}
	emit(text)
	return append(out, trailing...)
}

// locateRows finds the rows in order and returns the span of text they cover.
func locateRows(text string, rows []string) (start, end int, ok bool) {
	start = -1
	for _, r := range rows {
		if r == "" {
			return 0, 0, false
		}
		i := strings.Index(text[end:], r)
		if i < 0 {
			return 0, 0, false
		}
		if start < 0 {
			start = end + i
		}
		end += i + len(r)
	}
	return start, end, start >= 0
}

var disableConfigDir sync.Once

func pdfcpuConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// pdfImages returns the embedded images the generative model accepts, keyed by page.
func pdfImages(path string) (byPage map[int][]core.Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			byPage, err = nil, fmt.Errorf("pdf image extraction: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	byPage = map[int][]core.Element{}
	err = api.ExtractImages(f, nil, func(img model.Image, _ bool, _ int) error {
		mimeType, ok := imageTypes["."+strings.ToLower(img.FileType)]
		if !ok {
			return nil
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("read image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		if len(data) == 0 {
			return nil
		}
		byPage[img.PageNr] = append(byPage[img.PageNr], core.Element{
			Kind:        core.ElementImage,
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			MIMEType:    mimeType,
			Page:        img.PageNr,
		})
		return nil
	}, pdfcpuConfig())
	if err != nil {
		return nil, err
	}
	return byPage, nil
}
