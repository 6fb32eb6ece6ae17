// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the lipgloss and bubbles building blocks of the
chat screen.

# Citations

ChipStyles adapts the theme for render.Terminal, PopoverView draws the detail
card of a focused marker and FooterView lists a message's sources:

	theme := styles.NewTheme()
	chips := components.ChipStyles(theme)
	term, _ := render.NewTerminal(render.TerminalOptions{Width: 80, Chips: &chips})
	bubble := components.NewMessageBubble(msg, term, theme)
	fmt.Println(bubble.View())

# Feedback

Toasts (ToastManager) are non-blocking notices that expire on their own.
ThinkingIndicator animates while a question is pending and Skeleton
placeholders shimmer while data loads.

# Navigation

Sidebar lists sessions with search, inline rename and the delete guard.
Suggestions offers starter questions in an empty chat.
*/
package components
