// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jeranaias/citeview/internal/citation"
)

// A placeholder is "<open><digits><close>" where <close> also encodes the
// marker's ordinal. It has the same display width as "[digits]" and holds
// no markdown punctuation, so wrapping and inline parsing leave it intact.
const (
	placeholderOpen   = '\uE000'
	placeholderBase   = 0xE100
	placeholderMax    = 0xF8FF
	maxPlaceholders   = placeholderMax - placeholderBase + 1
	placeholderBroken = "]"
)

var placeholderPattern = regexp.MustCompile("\uE000([0-9]+)([\uE100-\uF8FF])")

// marked is content with placeholders plus the markers they stand for,
// indexed by ordinal.
type marked struct {
	text    string
	markers []citation.Segment
}

// withPlaceholders rewrites the marker segments of segs as placeholders.
// Markers past the placeholder capacity stay literal.
func withPlaceholders(segs []citation.Segment) marked {
	var b strings.Builder
	var markers []citation.Segment
	for _, s := range segs {
		if s.Kind != citation.KindCitation || len(markers) >= maxPlaceholders {
			b.WriteString(s.Raw())
			continue
		}
		b.WriteRune(placeholderOpen)
		b.WriteString(strings.TrimSuffix(strings.TrimPrefix(s.Raw(), "["), "]"))
		b.WriteRune(rune(placeholderBase + len(markers)))
		markers = append(markers, s)
	}
	return marked{text: b.String(), markers: markers}
}

// replace substitutes every intact placeholder in rendered with chip(ordinal,
// segment). Placeholders split apart by the engine (for example by syntax
// highlighting inside code) are restored to their literal brackets.
func (m marked) replace(rendered string, chip func(ordinal int, seg citation.Segment) string) string {
	out := placeholderPattern.ReplaceAllStringFunc(rendered, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		r := []rune(sub[2])[0]
		ordinal := int(r) - placeholderBase
		if ordinal < 0 || ordinal >= len(m.markers) {
			return "[" + sub[1] + "]"
		}
		return chip(ordinal, m.markers[ordinal])
	})
	return restoreBroken(out)
}

// placeholderSafe reports whether no text run of segs already holds a
// placeholder rune. Content that does must skip the placeholder path.
func placeholderSafe(segs []citation.Segment) bool {
	for _, s := range segs {
		if s.Kind != citation.KindCitation && strings.ContainsFunc(s.Text, isPlaceholderRune) {
			return false
		}
	}
	return true
}

// dropped reports whether the engine removed any placeholder outright, as
// markdown does with raw HTML blocks. A placeholder split by markup still
// counts as present.
func (m marked) dropped(rendered string) bool {
	seen := make([]bool, len(m.markers))
	for _, r := range rendered {
		if ordinal := int(r) - placeholderBase; ordinal >= 0 && ordinal < len(seen) {
			seen[ordinal] = true
		}
	}
	for _, ok := range seen {
		if !ok {
			return true
		}
	}
	return false
}

func restoreBroken(s string) string {
	if !strings.ContainsFunc(s, isPlaceholderRune) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == placeholderOpen:
			b.WriteByte('[')
		case r >= placeholderBase && r <= placeholderMax:
			b.WriteString(placeholderBroken)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isPlaceholderRune(r rune) bool {
	return r == placeholderOpen || (r >= placeholderBase && r <= placeholderMax)
}

func label(seg citation.Segment) string {
	if seg.Literal != "" {
		return seg.Literal
	}
	return "[" + strconv.Itoa(seg.Number) + "]"
}
