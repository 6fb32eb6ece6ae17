// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
	"github.com/jeranaias/citeview/internal/ui/styles"
)

// =============================================================================
// CITATION CHIPS
// =============================================================================

// ChipStyles returns the renderer chip palette for theme.
func ChipStyles(theme *styles.Theme) render.ChipStyles {
	return render.ChipStyles{
		Resolved:   theme.ChipResolved,
		Unresolved: theme.ChipUnresolved,
		Focused:    theme.ChipFocused,
	}
}

// =============================================================================
// POPOVER
// =============================================================================

// Popover action labels.
const (
	ViewSourceLabel = "[v] View source"
	OpeningLabel    = "Opening..."
	ClosePopover    = "[enter] Close"
)

// PopoverView renders the detail card for a focused citation, at most
// width cells wide.
func PopoverView(p render.Popover, theme *styles.Theme, width int) string {
	inner := width - 4
	if inner < 20 {
		inner = 20
	}
	if inner > 60 {
		inner = 60
	}

	var b strings.Builder
	b.WriteString(theme.PopoverTitle.Render(truncate(p.Heading(), inner)))
	b.WriteString("\n")

	body := wrapText(p.Body, inner)
	if p.Quoted {
		b.WriteString(theme.PopoverBody.Render(body))
	} else {
		b.WriteString(theme.PopoverMuted.Render(body))
	}

	var actions []string
	switch {
	case p.Loading:
		actions = append(actions, theme.PopoverMuted.Render(OpeningLabel))
	case p.CanView:
		actions = append(actions, theme.PopoverAction.Render(ViewSourceLabel))
	}
	actions = append(actions, theme.PopoverMuted.Render(ClosePopover))
	b.WriteString("\n\n")
	b.WriteString(strings.Join(actions, "  "))

	return theme.PopoverBox.Render(b.String())
}

// =============================================================================
// SOURCES FOOTER
// =============================================================================

// FooterView renders the "Sources:" list under a message, or "" when the
// message cites nothing. The entry for focusNumber is highlighted.
func FooterView(citations []model.Citation, theme *styles.Theme, width, focusNumber int) string {
	entries := render.Footer(citations)
	if entries == nil {
		return ""
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, theme.FooterHeading.Render(render.FooterHeading))
	for _, e := range entries {
		text := truncate(e.String(), width)
		if e.Number == focusNumber {
			lines = append(lines, theme.ChipResolved.Render(text))
			continue
		}
		lines = append(lines, theme.FooterItem.Render(text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
