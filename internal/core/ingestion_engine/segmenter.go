package ingestion_engine

import (
	"fmt"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// Segment is a contiguous run of elements that becomes one chunk.
//
// Index:      zero-based ordinal inside the document.
// CharCount:  sum of element character counts.
// PageNumber: page of the first element that has one, else Index+1.
type Segment struct {
	Index      int
	Elements   []core.Element
	CharCount  int
	PageNumber int
}

// hasBody reports whether the segment holds text beyond titles. Images carry no text,
// so a leading image run stays with the section that follows it.
func (s *Segment) hasBody() bool {
	for _, e := range s.Elements {
		if e.Kind != core.ElementTitle && e.Kind != core.ElementImage {
			return true
		}
	}
	return false
}

func (s *Segment) add(e core.Element) {
	s.Elements = append(s.Elements, e)
	s.CharCount += e.Chars()
}

// Segmenter groups elements into size-bounded segments.
type Segmenter struct {
	hardMax int
	softMax int
	minSize int
}

func NewSegmenter(hardMax, softMax, minSize int) *Segmenter {
	d := DefaultIngestConfig()
	if hardMax <= 0 {
		hardMax = d.HardMaxChars
	}
	if softMax <= 0 || softMax > hardMax {
		softMax = min(d.SoftMaxChars, hardMax)
	}
	if minSize <= 0 || minSize > softMax {
		minSize = min(d.MinChunkChars, softMax)
	}
	return &Segmenter{hardMax: hardMax, softMax: softMax, minSize: minSize}
}

// Segment walks the elements once, closing the current segment when
//   - the next element would push it past the hard ceiling,
//   - it has reached the soft threshold, or
//   - a title arrives after body content,
//
// then merges undersized segments into their predecessor while the result fits the ceiling.
func (s *Segmenter) Segment(elements []core.Element) ([]Segment, error) {
	for i, e := range elements {
		if err := validateElement(i, e); err != nil {
			return nil, err
		}
	}

	var (
		raw []Segment
		cur Segment
	)
	closeCur := func() {
		if len(cur.Elements) > 0 {
			raw = append(raw, cur)
			cur = Segment{}
		}
	}

	for _, e := range elements {
		if len(cur.Elements) > 0 {
			switch {
			case cur.CharCount+e.Chars() > s.hardMax:
				closeCur()
			case cur.CharCount >= s.softMax:
				closeCur()
			case e.Kind == core.ElementTitle && cur.hasBody():
				closeCur()
			}
		}
		cur.add(e)
	}
	closeCur()

	merged := make([]Segment, 0, len(raw))
	for _, seg := range raw {
		if n := len(merged); n > 0 && seg.CharCount < s.minSize && merged[n-1].CharCount+seg.CharCount <= s.hardMax {
			prev := &merged[n-1]
			prev.Elements = append(prev.Elements, seg.Elements...)
			prev.CharCount += seg.CharCount
			continue
		}
		merged = append(merged, seg)
	}

	for i := range merged {
		merged[i].Index = i
		merged[i].PageNumber = i + 1
		for _, e := range merged[i].Elements {
			if e.Page > 0 {
				merged[i].PageNumber = e.Page
				break
			}
		}
	}
	return merged, nil
}

func validateElement(i int, e core.Element) error {
	switch {
	case !e.Kind.Valid():
		return &SegmentationError{Index: i, Reason: fmt.Sprintf("unknown element kind %d", int(e.Kind))}
	case e.Kind == core.ElementImage && e.ImageBase64 == "":
		return &SegmentationError{Index: i, Reason: "image without payload"}
	case e.Kind == core.ElementTable && e.Text == "" && e.HTML == "":
		return &SegmentationError{Index: i, Reason: "table without content"}
	case e.Page < 0:
		return &SegmentationError{Index: i, Reason: fmt.Sprintf("negative page %d", e.Page)}
	}
	return nil
}
