// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citeview/internal/model"
)

var sampleCitations = []model.Citation{
	{Number: 1, SourceID: "s1", SourceName: "Annual report", Text: "Revenue rose 12%", FilePath: "reports/annual.pdf"},
	{Number: 2, SourceID: "s2", SourceName: "Blog post"},
}

// =============================================================================
// SPLIT TESTS
// =============================================================================

func TestSplit_Empty(t *testing.T) {
	segs := Split("", sampleCitations)
	require.NotNil(t, segs)
	assert.Len(t, segs, 0)
}

func TestSplit_NoMarkers(t *testing.T) {
	segs := Split("plain *markdown* text", sampleCitations)
	require.Len(t, segs, 1)
	assert.Equal(t, KindText, segs[0].Kind)
	assert.Equal(t, "plain *markdown* text", segs[0].Text)
	assert.False(t, HasMarkers(segs))
}

func TestSplit_MixedContent(t *testing.T) {
	content := "Revenue grew [1] while costs fell [2]."
	segs := Split(content, sampleCitations)
	require.Len(t, segs, 5)

	assert.Equal(t, "Revenue grew ", segs[0].Text)
	assert.Equal(t, KindCitation, segs[1].Kind)
	assert.Equal(t, 1, segs[1].Number)
	require.NotNil(t, segs[1].Citation)
	assert.Equal(t, "Annual report", segs[1].Citation.SourceName)
	assert.Equal(t, " while costs fell ", segs[2].Text)
	assert.Equal(t, 2, segs[3].Number)
	assert.Equal(t, ".", segs[4].Text)

	assert.Equal(t, 13, segs[1].Start)
	assert.Equal(t, 16, segs[1].End)
	assert.True(t, HasMarkers(segs))
}

func TestSplit_AdjacentMarkers(t *testing.T) {
	segs := Split("[1][2]", sampleCitations)
	require.Len(t, segs, 2)
	assert.Equal(t, 1, segs[0].Number)
	assert.Equal(t, 2, segs[1].Number)
}

func TestSplit_LeadingAndTrailingMarkers(t *testing.T) {
	segs := Split("[2] middle [1]", sampleCitations)
	require.Len(t, segs, 3)
	assert.True(t, segs[0].IsCitation())
	assert.Equal(t, " middle ", segs[1].Text)
	assert.True(t, segs[2].IsCitation())
}

func TestSplit_Unresolved(t *testing.T) {
	segs := Split("Claim [7].", sampleCitations)
	require.Len(t, segs, 3)
	assert.Equal(t, 7, segs[1].Number)
	assert.Nil(t, segs[1].Citation)
	assert.False(t, segs[1].Resolved())

	un := Unresolved(segs)
	require.Len(t, un, 1)
	assert.Equal(t, 7, un[0].Number)
}

func TestSplit_NilCitations(t *testing.T) {
	segs := Split("a [1] b", nil)
	require.Len(t, segs, 3)
	assert.Nil(t, segs[1].Citation)
}

func TestSplit_MalformedMarkersStayText(t *testing.T) {
	tests := []string{
		"see [abc] here",
		"open [ bracket",
		"empty [] marker",
		"spaced [ 1 ] marker",
		"signed [-1] marker",
		"arabic-indic [١] digits",
		"fullwidth [１] digits",
	}
	for _, content := range tests {
		t.Run(content, func(t *testing.T) {
			segs := Split(content, sampleCitations)
			require.Len(t, segs, 1)
			assert.Equal(t, KindText, segs[0].Kind)
			assert.Equal(t, content, segs[0].Text)
		})
	}
}

func TestSplit_NestedBrackets(t *testing.T) {
	segs := Split("[[1]]", sampleCitations)
	require.Len(t, segs, 3)
	assert.Equal(t, "[", segs[0].Text)
	assert.Equal(t, 1, segs[1].Number)
	assert.Equal(t, "]", segs[2].Text)
}

func TestSplit_LeadingZeros(t *testing.T) {
	segs := Split("x [01]", sampleCitations)
	require.Len(t, segs, 2)
	assert.Equal(t, 1, segs[1].Number)
	assert.Equal(t, "[01]", segs[1].Literal)
	require.NotNil(t, segs[1].Citation)
	assert.Equal(t, "x [01]", Reconstruct(segs))
}

func TestSplit_ZeroMarker(t *testing.T) {
	segs := Split("[0]", sampleCitations)
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].Number)
	assert.Nil(t, segs[0].Citation)
}

func TestSplit_OverflowFailsClosed(t *testing.T) {
	segs := Split("big [99999999999999999999] number", sampleCitations)
	require.Len(t, segs, 1)
	assert.Equal(t, KindText, segs[0].Kind)

	segs = Split("[1234567890][1]", sampleCitations)
	require.Len(t, segs, 2)
	assert.Equal(t, "[1234567890]", segs[0].Text)
	assert.Equal(t, 1, segs[1].Number)

	segs = Split("[999999999]", nil)
	require.Len(t, segs, 1)
	assert.Equal(t, 999999999, segs[0].Number)
}

func TestSplit_DuplicateNumbersFirstMatchWins(t *testing.T) {
	citations := []model.Citation{
		{Number: 3, SourceName: "first"},
		{Number: 3, SourceName: "second"},
	}
	segs := Split("[3]", citations)
	require.Len(t, segs, 1)
	require.NotNil(t, segs[0].Citation)
	assert.Equal(t, "first", segs[0].Citation.SourceName)
}

func TestSplit_MultibyteOffsets(t *testing.T) {
	content := "données [1] résumé"
	segs := Split(content, sampleCitations)
	require.Len(t, segs, 3)
	for _, s := range segs {
		assert.Equal(t, s.Raw(), content[s.Start:s.End])
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestSplit_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"no markers",
		"[1]",
		"a[1]b[2]c[3]",
		"[1][1][1]",
		"[abc] [1] [",
		"[007] zero padded",
		"[12345678901] overflow then [2]",
		"line one [1]\n\n```go\nx := a[0]\n```\n",
		"unicode ✓ [2] 日本語",
	}
	for _, content := range inputs {
		assert.Equal(t, content, Reconstruct(Split(content, sampleCitations)), "content %q", content)
	}
}

func TestSplit_NoEmptyTextSegments(t *testing.T) {
	for _, content := range []string{"[1][2]", "[1]", "x[1]", "[1]x", "[1] [2]"} {
		for _, s := range Split(content, sampleCitations) {
			if s.Kind == KindText {
				assert.NotEmpty(t, s.Text, "content %q", content)
			}
		}
	}
}

func TestSplit_ContiguousOffsets(t *testing.T) {
	content := "a [1] b [x] c [2][3]"
	segs := Split(content, sampleCitations)
	pos := 0
	for _, s := range segs {
		assert.Equal(t, pos, s.Start)
		pos = s.End
	}
	assert.Equal(t, len(content), pos)
}

func TestSplit_Idempotent(t *testing.T) {
	content := "Revenue grew [1] while costs fell [2] and [9]."
	assert.Equal(t, Split(content, sampleCitations), Split(content, sampleCitations))
}

func TestSplit_DoesNotMutateInputs(t *testing.T) {
	citations := []model.Citation{{Number: 1, SourceName: "orig"}}
	segs := Split("[1]", citations)
	require.NotNil(t, segs[0].Citation)

	segs[0].Citation.SourceName = "changed"
	assert.Equal(t, "orig", citations[0].SourceName)
}

func TestSplit_Concurrent(t *testing.T) {
	content := "a [1] b [2] c [3]"
	want := Split(content, sampleCitations)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Split(content, sampleCitations))
		}()
	}
	wg.Wait()
}

// =============================================================================
// HELPERS
// =============================================================================

func TestNumbers(t *testing.T) {
	assert.Equal(t, []int{2, 1, 5}, Numbers("[2] x [1] [2] [5] [abc]"))
	assert.Nil(t, Numbers("none"))
}

func TestMarkers(t *testing.T) {
	m := Markers(Split("a [1] b [2]", nil))
	require.Len(t, m, 2)
	assert.Equal(t, 2, m[1].Number)
}

func TestResolve(t *testing.T) {
	c := Resolve(2, sampleCitations)
	require.NotNil(t, c)
	assert.Equal(t, "s2", c.SourceID)
	assert.Nil(t, Resolve(42, sampleCitations))
}

func TestSegment_JSON(t *testing.T) {
	data, err := json.Marshal(Split("a [1]", sampleCitations))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"text"`)
	assert.Contains(t, string(data), `"kind":"citation"`)

	var back []Segment
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "a [1]", Reconstruct(back))
}
