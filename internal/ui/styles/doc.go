// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for citeview.
//
// All colors are lipgloss AdaptiveColors so the same palette works on light
// and dark terminals. Theme groups the composed styles used by the chat view
// and components; it is created once per program with NewTheme.
//
// Status messages always carry an ASCII shape ([OK], [X], [!], [i]) next to
// their color so they stay readable without color.
package styles
