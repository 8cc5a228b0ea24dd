package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

func kinds(els []core.Element) []core.ElementKind {
	out := make([]core.ElementKind, len(els))
	for i, e := range els {
		out[i] = e.Kind
	}
	return out
}

func newTestExtractor(t *testing.T) (*Extractor, string) {
	dir := t.TempDir()
	return NewExtractor(logger.NewNop(), WithTempDir(dir)), dir
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary copy left behind")
}

func TestResolveFormat(t *testing.T) {
	cases := []struct {
		source      models.SourceType
		name, ctype string
		want        Format
	}{
		{models.SourceFile, "report.PDF", "", FormatPDF},
		{models.SourceFile, "notes.md", "application/octet-stream", FormatMarkdown},
		{models.SourceFile, "blob", "text/plain; charset=utf-8", FormatText},
		{models.SourceFile, "deck", "application/vnd.openxmlformats-officedocument.presentationml.presentation", FormatPPTX},
		{models.SourceFile, "old.doc", "", FormatLegacy},
		{models.SourceURL, "whatever.pdf", "application/pdf", FormatHTML},
	}
	for _, tc := range cases {
		got, _, err := ResolveFormat(tc.source, tc.name, tc.ctype)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}

	_, _, err := ResolveFormat(models.SourceFile, "archive.tar.gz", "application/gzip")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtract_PlainText(t *testing.T) {
	e, dir := newTestExtractor(t)

	els, err := e.Extract(context.Background(), core.ExtractRequest{
		Data:     []byte("first paragraph\ncontinues here\n\n\nsecond paragraph\n"),
		FileName: "a.txt",
		Source:   models.SourceFile,
	})
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "first paragraph\ncontinues here", els[0].Text)
	assert.Equal(t, core.ElementText, els[1].Kind)
	assertNoTempFiles(t, dir)
}

func TestExtract_Markdown(t *testing.T) {
	e, _ := newTestExtractor(t)
	src := "# Overview\n\nSome intro text.\n\n| Name | Value |\n|------|------:|\n| a | 1 |\n| b | 2 |\n\n```go\nfmt.Println(1)\n```\n## Next ##\ntrailing"

	els, err := e.Extract(context.Background(), core.ExtractRequest{Data: []byte(src), FileName: "x.md", Source: models.SourceFile})
	require.NoError(t, err)

	assert.Equal(t, []core.ElementKind{
		core.ElementTitle, core.ElementText, core.ElementTable, core.ElementOther, core.ElementTitle, core.ElementText,
	}, kinds(els))
	assert.Equal(t, "Overview", els[0].Text)
	assert.Equal(t, "Name | Value\na | 1\nb | 2", els[2].Text)
	assert.Equal(t, "<table><tr><td>Name</td><td>Value</td></tr><tr><td>a</td><td>1</td></tr><tr><td>b</td><td>2</td></tr></table>", els[2].HTML)
	assert.Equal(t, "fmt.Println(1)", els[3].Text)
	assert.Equal(t, "Next", els[4].Text)
}

const htmlPage = `<html><head><title>Pricing</title><style>p{}</style></head><body>
<h1>Plans</h1>
<p>Choose   the plan
that fits.</p>
<div>Loose text <span>inside div</span></div>
<table><tr><th>Plan</th><th>Price</th></tr><tr><td>Pro</td><td>$10</td></tr></table>
<p>Logo <img src="data:image/png;base64,iVBORw0KGgo="></p>
<img src="https://cdn.example.com/a.png">
<script>alert(1)</script>
</body></html>`

func TestExtract_HTMLFileKeepsInlineImages(t *testing.T) {
	e, _ := newTestExtractor(t)

	els, err := e.Extract(context.Background(), core.ExtractRequest{Data: []byte(htmlPage), FileName: "p.html", Source: models.SourceFile})
	require.NoError(t, err)

	assert.Equal(t, []core.ElementKind{
		core.ElementTitle, core.ElementTitle, core.ElementText, core.ElementText, core.ElementTable, core.ElementText, core.ElementImage,
	}, kinds(els))
	assert.Equal(t, "Pricing", els[0].Text)
	assert.Equal(t, "Choose the plan that fits.", els[2].Text)
	assert.Equal(t, "Loose text inside div", els[3].Text)
	assert.Equal(t, "Plan | Price\nPro | $10", els[4].Text)
	assert.Contains(t, els[4].HTML, "<table>")
	assert.Equal(t, "image/png", els[6].MIMEType)
	assert.Equal(t, "iVBORw0KGgo=", els[6].ImageBase64)
	for _, el := range els {
		assert.NotContains(t, el.Text, "alert")
	}
}

func TestExtract_HTMLFromURLDropsImages(t *testing.T) {
	e, _ := newTestExtractor(t)

	els, err := e.Extract(context.Background(), core.ExtractRequest{Data: []byte(htmlPage), Source: models.SourceURL})
	require.NoError(t, err)
	for _, el := range els {
		assert.NotEqual(t, core.ElementImage, el.Kind)
	}
}

func TestExtract_DOCX(t *testing.T) {
	e, dir := newTestExtractor(t)

	els, err := e.Extract(context.Background(), core.ExtractRequest{Data: docxFixture(t), FileName: "q.docx", Source: models.SourceFile})
	require.NoError(t, err)

	require.Equal(t, []core.ElementKind{core.ElementTitle, core.ElementText, core.ElementTable, core.ElementImage}, kinds(els))
	assert.Equal(t, "Quarterly Results", els[0].Text)
	assert.Equal(t, "Revenue grew in every region.", els[1].Text)
	assert.Equal(t, "Region | Revenue\nEMEA | <10", els[2].Text)
	assert.Equal(t, "<table><tr><td>Region</td><td>Revenue</td></tr><tr><td>EMEA</td><td>&lt;10</td></tr></table>", els[2].HTML)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(pngBytes)), els[3].ImageBase64)
	assert.Equal(t, "image/png", els[3].MIMEType)
	assertNoTempFiles(t, dir)
}

func TestExtract_PPTX(t *testing.T) {
	e, _ := newTestExtractor(t)
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml":            fmt.Sprintf(slideXML, "Later"),
		"ppt/slides/slide2.xml":             fmt.Sprintf(slideXML, "Agenda"),
		"ppt/slides/_rels/slide2.xml.rels":  slideRels,
		"ppt/slides/_rels/slide10.xml.rels": slideRels,
		"ppt/media/image7.jpeg":             "jpegdata",
	})

	els, err := e.Extract(context.Background(), core.ExtractRequest{Data: data, FileName: "deck.pptx", Source: models.SourceFile})
	require.NoError(t, err)
	require.Len(t, els, 8)

	assert.Equal(t, core.ElementTitle, els[0].Kind)
	assert.Equal(t, "Agenda", els[0].Text)
	assert.Equal(t, 2, els[0].Page)
	assert.Equal(t, "First point\nSecond point", els[1].Text)
	assert.Equal(t, core.ElementTable, els[2].Kind)
	assert.Equal(t, "Q1 | 42", els[2].Text)
	assert.Equal(t, core.ElementImage, els[3].Kind)
	assert.Equal(t, "image/jpeg", els[3].MIMEType)
	assert.Equal(t, "Later", els[4].Text)
	assert.Equal(t, 10, els[4].Page)
}

func TestExtract_CorruptInputsFail(t *testing.T) {
	e, dir := newTestExtractor(t)

	_, err := e.Extract(context.Background(), core.ExtractRequest{Data: []byte("not a pdf"), FileName: "x.pdf", Source: models.SourceFile})
	require.Error(t, err)

	_, err = e.Extract(context.Background(), core.ExtractRequest{Data: []byte("not a zip"), FileName: "x.docx", Source: models.SourceFile})
	require.Error(t, err)

	_, err = e.Extract(context.Background(), core.ExtractRequest{Data: buildZip(t, map[string]string{"a.txt": "x"}), FileName: "x.pptx", Source: models.SourceFile})
	require.Error(t, err)

	assertNoTempFiles(t, dir)
}

func TestExtract_Unsupported(t *testing.T) {
	e, dir := newTestExtractor(t)

	_, err := e.Extract(context.Background(), core.ExtractRequest{Data: []byte{1, 2}, FileName: "a.bin", Source: models.SourceFile})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assertNoTempFiles(t, dir)
}

func TestWithTempCopy_RemovesOnError(t *testing.T) {
	dir := t.TempDir()
	var seen string

	err := withTempCopy(dir, []byte("payload"), ".txt", func(path string) error {
		seen = path
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(b))
		return fmt.Errorf("parser exploded")
	})
	require.EqualError(t, err, "parser exploded")
	assert.NoFileExists(t, seen)
}

func TestParseDataURI(t *testing.T) {
	mt, payload, ok := parseDataURI("data:image/jpeg;base64,AAAA")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", mt)
	assert.Equal(t, "AAAA", payload)

	_, _, ok = parseDataURI("data:text/plain;base64,AAAA")
	assert.False(t, ok)
	_, _, ok = parseDataURI("https://example.com/x.png")
	assert.False(t, ok)
}

func TestLooksLikeHeading(t *testing.T) {
	assert.True(t, looksLikeHeading("Executive Summary"))
	assert.True(t, looksLikeHeading("2. Methodology"))
	assert.False(t, looksLikeHeading("This sentence ends with a period."))
	assert.False(t, looksLikeHeading("lowercase start"))
	assert.False(t, looksLikeHeading("Line one\nLine two"))
}
