// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jeranaias/citeview/internal/model"
)

// MaxMarkerDigits bounds the digit run of a marker. Longer runs cannot be
// represented as a citation number and are left as text.
const MaxMarkerDigits = 9

// RE2's \d only matches ASCII digits.
var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Split scans content for [n] markers and returns the ordered segments.
//
// Empty content yields an empty slice. Content without markers yields a
// single text segment. Markers whose number has no citation are returned
// with a nil Citation.
func Split(content string, citations []model.Citation) []Segment {
	segs := []Segment{}
	if content == "" {
		return segs
	}

	last := 0
	for _, m := range markerPattern.FindAllStringSubmatchIndex(content, -1) {
		start, end := m[0], m[1]
		digits := content[m[2]:m[3]]

		n, ok := parseNumber(digits)
		if !ok {
			// Overflowing markers stay part of the surrounding text.
			continue
		}

		if start > last {
			segs = append(segs, textSegment(content, last, start))
		}
		segs = append(segs, Segment{
			Kind:     KindCitation,
			Number:   n,
			Literal:  content[start:end],
			Citation: Resolve(n, citations),
			Start:    start,
			End:      end,
		})
		last = end
	}

	if last < len(content) {
		segs = append(segs, textSegment(content, last, len(content)))
	}
	return segs
}

func textSegment(content string, start, end int) Segment {
	return Segment{Kind: KindText, Text: content[start:end], Start: start, End: end}
}

func parseNumber(digits string) (int, bool) {
	if len(digits) > MaxMarkerDigits {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Resolve returns a copy of the first citation numbered n, or nil.
func Resolve(n int, citations []model.Citation) *model.Citation {
	for i := range citations {
		if citations[i].Number == n {
			c := citations[i]
			return &c
		}
	}
	return nil
}

// Reconstruct concatenates the raw form of every segment.
func Reconstruct(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Raw())
	}
	return b.String()
}

// HasMarkers reports whether any segment is a citation marker. Renderers use
// it to choose between whole-document and segment-wise rendering.
func HasMarkers(segs []Segment) bool {
	for _, s := range segs {
		if s.Kind == KindCitation {
			return true
		}
	}
	return false
}

// Numbers returns the distinct marker numbers in content in order of first
// appearance.
func Numbers(content string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, s := range Split(content, nil) {
		if s.Kind != KindCitation || seen[s.Number] {
			continue
		}
		seen[s.Number] = true
		out = append(out, s.Number)
	}
	return out
}

// Unresolved returns the marker segments that found no citation.
func Unresolved(segs []Segment) []Segment {
	var out []Segment
	for _, s := range segs {
		if s.Kind == KindCitation && s.Citation == nil {
			out = append(out, s)
		}
	}
	return out
}

// Markers returns only the citation segments, in order.
func Markers(segs []Segment) []Segment {
	var out []Segment
	for _, s := range segs {
		if s.Kind == KindCitation {
			out = append(out, s)
		}
	}
	return out
}
