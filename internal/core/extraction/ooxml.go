package extraction

import (
	"archive/zip"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"path"
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// imageTypes lists the media formats the generative model accepts.
var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func zipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("zip entry %q not found", name)
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
		Mode   string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// partRels maps relationship ids of a part to zip entry names. Missing rels yield an empty map.
func partRels(zr *zip.Reader, part string) map[string]string {
	dir, file := path.Split(part)
	raw, err := zipEntry(zr, dir+"_rels/"+file+".rels")
	if err != nil {
		return map[string]string{}
	}
	var rels relationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		if strings.EqualFold(r.Mode, "External") {
			continue
		}
		target := r.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Clean(path.Join(dir, target))
		}
		out[r.ID] = target
	}
	return out
}

// embeddedImage loads a related media part as an image element. ok is false for
// unknown relationship ids and unsupported media types.
func embeddedImage(zr *zip.Reader, rels map[string]string, relID string, page int) (core.Element, bool) {
	target, found := rels[relID]
	if !found {
		return core.Element{}, false
	}
	mimeType, supported := imageTypes[strings.ToLower(path.Ext(target))]
	if !supported {
		return core.Element{}, false
	}
	data, err := zipEntry(zr, target)
	if err != nil || len(data) == 0 {
		return core.Element{}, false
	}
	return core.Element{
		Kind:        core.ElementImage,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MIMEType:    mimeType,
		Page:        page,
	}, true
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// tableBuilder accumulates rows and cells while walking table markup.
type tableBuilder struct {
	rows [][]string
	cell strings.Builder
}

func (t *tableBuilder) startRow() { t.rows = append(t.rows, nil) }

func (t *tableBuilder) startCell() { t.cell.Reset() }

func (t *tableBuilder) write(s string) { t.cell.WriteString(s) }

func (t *tableBuilder) endCell() {
	if len(t.rows) == 0 {
		t.startRow()
	}
	last := len(t.rows) - 1
	t.rows[last] = append(t.rows[last], strings.Join(strings.Fields(t.cell.String()), " "))
}

func (t *tableBuilder) element(page int) (core.Element, bool) {
	var rows [][]string
	for _, r := range t.rows {
		for _, c := range r {
			if c != "" {
				rows = append(rows, r)
				break
			}
		}
	}
	if len(rows) == 0 {
		return core.Element{}, false
	}
	return core.Element{Kind: core.ElementTable, Text: tableText(rows), HTML: tableHTML(rows), Page: page}, true
}

func tableText(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, strings.Join(r, " | "))
	}
	return strings.Join(lines, "\n")
}

func tableHTML(rows [][]string) string {
	var b strings.Builder
	b.WriteString("<table>")
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, c := range r {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(c))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}
