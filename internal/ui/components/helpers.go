// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// truncate shortens s to at most width display cells, ending with "...".
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// wrapText breaks s into lines of at most width cells on word boundaries.
// Words longer than width are hard-split.
func wrapText(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range strings.Fields(s) {
		w := runewidth.StringWidth(word)
		for w > width {
			if lineWidth > 0 {
				flush()
			}
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				_, size := utf8.DecodeRuneInString(word)
				head = word[:size]
			}
			lines = append(lines, head)
			word = word[len(head):]
			w = runewidth.StringWidth(word)
		}
		if w == 0 {
			continue
		}
		if lineWidth > 0 && lineWidth+1+w > width {
			flush()
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += w
	}
	if lineWidth > 0 {
		flush()
	}
	return strings.Join(lines, "\n")
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
