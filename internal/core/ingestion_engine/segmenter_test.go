package ingestion_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

func segmentSizes(segs []Segment) []int {
	out := make([]int, len(segs))
	for i, s := range segs {
		out[i] = s.CharCount
	}
	return out
}

func TestSegmenter_HardAndSoftCeilings(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)

	segs, err := s.Segment([]core.Element{textEl(1000), textEl(1000), textEl(1000), textEl(1000), textEl(1000)})
	require.NoError(t, err)
	assert.Equal(t, []int{3000, 2000}, segmentSizes(segs))

	segs, err = s.Segment([]core.Element{textEl(2500), textEl(100), textEl(600)})
	require.NoError(t, err)
	assert.Equal(t, []int{2500, 700}, segmentSizes(segs), "soft threshold closes at the next element")
}

func TestSegmenter_TitleAfterBodyStartsSegment(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)

	segs, err := s.Segment([]core.Element{titleEl("Intro"), textEl(600), titleEl("Next"), textEl(600)})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, core.ElementTitle, segs[0].Elements[0].Kind)
	assert.Equal(t, "Next", segs[1].Elements[0].Text)
}

func TestSegmenter_OversizedElementStandsAlone(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)

	segs, err := s.Segment([]core.Element{textEl(100), textEl(5000), textEl(700)})
	require.NoError(t, err)
	assert.Equal(t, []int{100, 5000, 700}, segmentSizes(segs))
}

func TestSegmenter_MergeRespectsCeiling(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)

	segs, err := s.Segment([]core.Element{textEl(600), titleEl("t"), textEl(100)})
	require.NoError(t, err)
	assert.Equal(t, []int{701}, segmentSizes(segs), "small trailing segment merges into its predecessor")

	segs, err = s.Segment([]core.Element{textEl(2900), textEl(200)})
	require.NoError(t, err)
	assert.Equal(t, []int{2900, 200}, segmentSizes(segs), "merge would exceed the ceiling")
}

func TestSegmenter_ImagesCountZeroAndTablesCountText(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)

	segs, err := s.Segment([]core.Element{
		imageEl(),
		tableEl("a | b", "<table><tr><td>a</td><td>b</td></tr></table>"),
		tableEl("", "<table></table>"),
	})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, len("a | b")+len("<table></table>"), segs[0].CharCount)
}

func TestSegmenter_CoversEveryElementInOrder(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)
	in := []core.Element{titleEl("A"), textEl(1200), tableEl("x", ""), textEl(1500), imageEl(), titleEl("B"), textEl(2800), textEl(50)}

	segs, err := s.Segment(in)
	require.NoError(t, err)

	var out []core.Element
	for i, seg := range segs {
		assert.Equal(t, i, seg.Index)
		out = append(out, seg.Elements...)
	}
	assert.Equal(t, in, out)
}

func TestSegmenter_PageNumbers(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)

	a, b := textEl(2500), textEl(2500)
	b.Page = 7
	segs, err := s.Segment([]core.Element{a, b})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, 1, segs[0].PageNumber, "no page falls back to index+1")
	assert.Equal(t, 7, segs[1].PageNumber)
}

func TestSegmenter_Empty(t *testing.T) {
	segs, err := NewSegmenter(0, 0, 0).Segment(nil)
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestSegmenter_RejectsMalformedElements(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)
	cases := map[string]core.Element{
		"unknown kind":  {Kind: core.ElementKind(42), Text: "x"},
		"empty image":   {Kind: core.ElementImage},
		"empty table":   {Kind: core.ElementTable},
		"negative page": {Kind: core.ElementText, Text: "x", Page: -1},
	}
	for name, el := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Segment([]core.Element{textEl(10), el})
			var se *SegmentationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 1, se.Index)
		})
	}
}

func TestNewSegmenter_Defaults(t *testing.T) {
	s := NewSegmenter(0, 0, 0)
	assert.Equal(t, 3000, s.hardMax)
	assert.Equal(t, 2400, s.softMax)
	assert.Equal(t, 500, s.minSize)
}

func TestSegmenter_LeadingImageJoinsFollowingSection(t *testing.T) {
	s := NewSegmenter(3000, 2400, 500)

	segs, err := s.Segment([]core.Element{imageEl(), titleEl("Annual report"), textEl(900)})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Len(t, segs[0].Elements, 3)
	assert.Equal(t, len("Annual report")+900, segs[0].CharCount)
}
