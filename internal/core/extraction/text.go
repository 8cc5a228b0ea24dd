package extraction

import (
	"context"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

func parsePlainText(_ context.Context, path string, _ core.ExtractRequest) ([]core.Element, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return textElements(string(b), 0), nil
}

// textElements turns blank-line separated blocks into text elements.
func textElements(s string, page int) []core.Element {
	var out []core.Element
	for _, block := range splitParagraphs(s) {
		out = append(out, core.Element{Kind: core.ElementText, Text: block, Page: page})
	}
	return out
}

func splitParagraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var (
		out []string
		cur []string
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimSpace(line))
	}
	flush()
	return out
}

// looksLikeHeading flags short single-line blocks without sentence punctuation.
func looksLikeHeading(block string) bool {
	if strings.Contains(block, "\n") || utf8.RuneCountInString(block) > 80 {
		return false
	}
	if strings.ContainsAny(block[len(block)-1:], ".,;:!?") {
		return false
	}
	if len(strings.Fields(block)) > 12 {
		return false
	}
	for _, r := range block {
		if unicode.IsLetter(r) {
			return unicode.IsUpper(r)
		}
	}
	return false
}

var (
	atxHeading   = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	tableDivider = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
	fenceOpen    = regexp.MustCompile("^(```|~~~)")
)

func parseMarkdown(_ context.Context, path string, _ core.ExtractRequest) ([]core.Element, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return markdownElements(string(b)), nil
}

func markdownElements(src string) []core.Element {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	var (
		out  []core.Element
		para []string
	)
	flush := func() {
		if len(para) > 0 {
			out = append(out, core.Element{Kind: core.ElementText, Text: strings.Join(para, "\n")})
			para = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		switch {
		case line == "":
			flush()

		case fenceOpen.MatchString(line):
			flush()
			marker := line[:3]
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), marker); i++ {
				code = append(code, lines[i])
			}
			if len(code) > 0 {
				out = append(out, core.Element{Kind: core.ElementOther, Text: strings.Join(code, "\n")})
			}

		case atxHeading.MatchString(line):
			flush()
			m := atxHeading.FindStringSubmatch(line)
			if m[2] != "" {
				out = append(out, core.Element{Kind: core.ElementTitle, Text: m[2]})
			}

		case strings.HasPrefix(line, "|") && i+1 < len(lines) && tableDivider.MatchString(strings.TrimSpace(lines[i+1])):
			flush()
			rows := [][]string{pipeCells(line)}
			for i += 2; i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|"); i++ {
				rows = append(rows, pipeCells(strings.TrimSpace(lines[i])))
			}
			i--
			out = append(out, core.Element{Kind: core.ElementTable, Text: tableText(rows), HTML: tableHTML(rows)})

		default:
			para = append(para, line)
		}
	}
	flush()
	return out
}

func pipeCells(line string) []string {
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
