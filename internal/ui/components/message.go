// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
	"github.com/jeranaias/citeview/internal/ui/styles"
)

// CopyHint is appended to the stats line of copyable replies.
const CopyHint = "[y] Copy"

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one chat message. Assistant content goes through
// the terminal renderer so citation markers become chips.
type MessageBubble struct {
	Message *model.Message
	Width   int

	// Focus is the ordinal of the highlighted citation marker, or
	// render.NoFocus.
	Focus int

	ShowCost      bool
	ShowTimestamp bool

	// Copyable adds the copy hint, normally only on the latest reply.
	Copyable bool

	renderer *render.Terminal
	theme    *styles.Theme
}

// NewMessageBubble creates a bubble for msg.
func NewMessageBubble(msg *model.Message, renderer *render.Terminal, theme *styles.Theme) *MessageBubble {
	return &MessageBubble{
		Message:       msg,
		Width:         80,
		Focus:         render.NoFocus,
		ShowCost:      true,
		ShowTimestamp: true,
		renderer:      renderer,
		theme:         theme,
	}
}

// View renders the bubble.
func (b *MessageBubble) View() string {
	if b.Message == nil {
		return ""
	}
	if b.Message.Role == model.RoleUser {
		return b.renderUser()
	}
	return b.renderAssistant()
}

func (b *MessageBubble) header(labelStyle lipgloss.Style) string {
	h := labelStyle.Render(b.Message.Role.DisplayName())
	if b.ShowTimestamp && !b.Message.CreatedAt.IsZero() {
		h += " " + b.theme.Timestamp.Render(b.Message.CreatedAt.Local().Format("15:04"))
	}
	return h
}

func (b *MessageBubble) renderUser() string {
	body := b.theme.UserBubble.
		Width(b.contentWidth()).
		Render(b.Message.Content)
	return b.header(b.theme.UserLabel) + "\n" + body
}

func (b *MessageBubble) renderAssistant() string {
	var content string
	if b.renderer != nil {
		content = b.renderer.RenderMessage(b.Message, b.Focus)
	} else {
		content = b.Message.Content
	}

	parts := []string{b.header(b.theme.AssistantLabel), b.theme.AssistantBody.Render(content)}

	if footer := FooterView(b.Message.Citations, b.theme, b.contentWidth(), b.focusNumber()); footer != "" {
		parts = append(parts, footer)
	}
	if stats := b.stats(); stats != "" {
		parts = append(parts, stats)
	}
	return strings.Join(parts, "\n")
}

func (b *MessageBubble) stats() string {
	var items []string
	if b.ShowCost && b.Message.HasCost() {
		items = append(items, b.theme.Cost.Render(b.Message.FormatCost()))
	}
	if b.Copyable {
		items = append(items, b.theme.Help.Render(CopyHint))
	}
	return strings.Join(items, "  ")
}

// focusNumber maps the focused ordinal to its citation number so the
// matching footer entry lights up.
func (b *MessageBubble) focusNumber() int {
	if b.Focus == render.NoFocus {
		return -1
	}
	markers := citation.Markers(citation.Split(b.Message.Content, nil))
	if b.Focus < 0 || b.Focus >= len(markers) {
		return -1
	}
	return markers[b.Focus].Number
}

func (b *MessageBubble) contentWidth() int {
	w := b.Width - 2
	if w < 20 {
		w = 20
	}
	return w
}
