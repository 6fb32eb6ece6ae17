// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/citeview/internal/ui/styles"
)

// AppName is shown at the left of the header.
const AppName = "citeview"

// =============================================================================
// HEADER
// =============================================================================

// Header is the title bar: app name, current chat title and a status word.
type Header struct {
	Title  string
	Status string
	Width  int
	theme  *styles.Theme
}

// NewHeader creates a header for the default chat title.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Width: 80, theme: theme}
}

// View renders the header on one line.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}

	left := h.theme.HeaderTitle.Render(AppName)
	if h.Title != "" {
		left += h.theme.Help.Render(" / ") + truncate(h.Title, width/2)
	}
	right := ""
	if h.Status != "" {
		right = h.theme.Help.Render(h.Status)
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// HELP BAR
// =============================================================================

// KeyHint is one "key action" pair in the help bar.
type KeyHint struct {
	Key    string
	Action string
}

// HelpBar renders hints left to right, dropping those that do not fit.
func HelpBar(hints []KeyHint, width int, theme *styles.Theme) string {
	var parts []string
	used := 0
	for _, h := range hints {
		item := theme.InputPrompt.Render(h.Key) + " " + theme.Help.Render(h.Action)
		w := lipgloss.Width(item)
		if used > 0 {
			w += 2
		}
		if width > 0 && used+w > width {
			break
		}
		parts = append(parts, item)
		used += w
	}
	return strings.Join(parts, "  ")
}
