// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/citeview/internal/render"
	"github.com/jeranaias/citeview/internal/ui/components"
)

// refresh re-renders the conversation into the viewport and keeps the
// focused citation on screen.
func (m *Model) refresh() {
	width := m.viewport.Width
	if len(m.messages) == 0 {
		m.msgOffsets = nil
		m.viewport.SetContent(m.emptyState())
		return
	}

	var focused *citeRef
	if m.citeIdx >= 0 && m.citeIdx < len(m.cites) {
		focused = &m.cites[m.citeIdx]
	}
	last := -1
	for i := range m.messages {
		if m.messages[i].IsAssistant() {
			last = i
		}
	}

	var b strings.Builder
	lines := 0
	m.msgOffsets = make([]int, len(m.messages))
	for i := range m.messages {
		m.msgOffsets[i] = lines

		bubble := components.NewMessageBubble(&m.messages[i], m.renderer, m.theme)
		bubble.Width = width
		bubble.ShowCost = m.opts.ShowCost
		bubble.Copyable = i == last
		if focused != nil && focused.msg == i {
			bubble.Focus = focused.ordinal
		}

		block := bubble.View()
		if focused != nil && focused.msg == i && m.popoverOpen {
			pop := render.NewPopover(focused.seg, m.loadingID())
			block += "\n" + components.PopoverView(pop, m.theme, width)
		}
		block += "\n\n"

		b.WriteString(block)
		lines += strings.Count(block, "\n")
	}
	m.viewport.SetContent(strings.TrimRight(b.String(), "\n"))

	if focused != nil {
		top := m.msgOffsets[focused.msg]
		if top < m.viewport.YOffset || top >= m.viewport.YOffset+m.viewport.Height {
			m.viewport.SetYOffset(top)
		}
	}
}

func (m *Model) emptyState() string {
	title := m.theme.HeaderTitle.Render(EmptyChatPrompt)
	return title + "\n\n" + m.suggestions.View()
}

// View renders the chat screen.
func (m Model) View() string {
	header := m.header.View()

	var body string
	if m.state == StateLoading {
		body = m.skeleton.View()
	} else {
		body = m.viewport.View() + "\n" + m.statusLine()
		if toasts := m.toasts.Toasts(); len(toasts) > 0 {
			stack := components.RenderToastStack(toasts, m.viewport.Width, time.Now())
			body = overlayBottom(body, stack)
		}
		if m.showSidebar {
			body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), body)
		}
	}

	input := m.theme.InputContainer.Width(m.width).Render(m.input.View())
	help := components.HelpBar(m.keys.helpFor(m.focus), m.width, m.theme)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, help)
}

// statusLine shows the thinking indicator or the focused citation hint.
func (m Model) statusLine() string {
	if m.thinking.IsActive() {
		return m.thinking.View()
	}
	if seg, ok := m.FocusedCitation(); ok {
		pop := render.NewPopover(seg, m.loadingID())
		return m.theme.Help.Render(pop.Heading())
	}
	return ""
}

// overlayBottom replaces the last lines of base with overlay.
func overlayBottom(base, overlay string) string {
	baseLines := strings.Split(base, "\n")
	over := strings.Split(overlay, "\n")
	if len(over) >= len(baseLines) {
		return overlay
	}
	copy(baseLines[len(baseLines)-len(over):], over)
	return strings.Join(baseLines, "\n")
}
