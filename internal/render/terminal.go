// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/ui/styles"
	"github.com/jeranaias/citeview/pkg/logger"
)

// NoFocus disables focused-chip highlighting.
const NoFocus = -1

const (
	defaultWidth = 80
	minWidth     = 20
)

// ChipStyles styles citation markers in terminal output.
type ChipStyles struct {
	Resolved   lipgloss.Style
	Unresolved lipgloss.Style
	Focused    lipgloss.Style
}

// DefaultChipStyles returns the palette used by the chat view.
func DefaultChipStyles() ChipStyles {
	return ChipStyles{
		Resolved: lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true),
		Unresolved: lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Strikethrough(true),
		Focused: lipgloss.NewStyle().
			Foreground(styles.TextInverse).
			Background(styles.FocusRing).
			Bold(true),
	}
}

// TerminalOptions configures a Terminal renderer.
type TerminalOptions struct {
	// Width is the wrap width in columns.
	Width int

	// Style is a glamour style name; "" or "auto" detects from the terminal.
	Style string

	Chips *ChipStyles
}

// Terminal renders messages as ANSI text.
type Terminal struct {
	mu    sync.Mutex
	tr    *glamour.TermRenderer
	width int
	chips ChipStyles
}

// NewTerminal creates a glamour-backed renderer.
func NewTerminal(opts TerminalOptions) (*Terminal, error) {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	if width < minWidth {
		width = minWidth
	}

	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" && opts.Style != "auto" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}

	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}

	chips := DefaultChipStyles()
	if opts.Chips != nil {
		chips = *opts.Chips
	}
	return &Terminal{tr: tr, width: width, chips: chips}, nil
}

// Width returns the wrap width.
func (t *Terminal) Width() int {
	return t.width
}

// Render renders assistant content. focus is the ordinal of the marker to
// highlight, or NoFocus.
func (t *Terminal) Render(content string, citations []model.Citation, focus int) string {
	segs := citation.Split(content, citations)
	if !citation.HasMarkers(segs) {
		out, err := t.markdown(content)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("RENDER_FALLBACK")
			return t.wrap(content)
		}
		return out
	}

	if !placeholderSafe(segs) {
		return t.Plain(segs, focus)
	}

	m := withPlaceholders(segs)
	out, err := t.markdown(m.text)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("RENDER_FALLBACK")
		return t.Plain(segs, focus)
	}
	if m.dropped(out) {
		logger.WithFields(logrus.Fields{"markers": len(m.markers)}).Debug("RENDER_MARKER_DROPPED")
		return t.Plain(segs, focus)
	}
	return m.replace(out, func(ordinal int, seg citation.Segment) string {
		return t.Chip(seg, ordinal == focus)
	})
}

// RenderMessage renders a message by role. User messages are wrapped as
// plain text; assistant messages get markdown and citation chips.
func (t *Terminal) RenderMessage(msg *model.Message, focus int) string {
	if msg.Role != model.RoleAssistant {
		return t.wrap(msg.Content)
	}
	return t.Render(msg.Content, msg.Citations, focus)
}

// Plain renders segments without markdown processing.
func (t *Terminal) Plain(segs []citation.Segment, focus int) string {
	var b strings.Builder
	ordinal := 0
	for _, s := range segs {
		if s.Kind == citation.KindCitation {
			b.WriteString(t.Chip(s, ordinal == focus))
			ordinal++
			continue
		}
		b.WriteString(s.Text)
	}
	return t.wrap(b.String())
}

// Chip renders one citation marker.
func (t *Terminal) Chip(seg citation.Segment, focused bool) string {
	text := label(seg)
	switch {
	case focused:
		return t.chips.Focused.Render(text)
	case seg.Citation == nil:
		return t.chips.Unresolved.Render(text)
	default:
		return t.chips.Resolved.Render(text)
	}
}

func (t *Terminal) markdown(s string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.tr.Render(s)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

func (t *Terminal) wrap(s string) string {
	return lipgloss.NewStyle().Width(t.width).Render(s)
}
