// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/citeview/internal/ui/styles"
)

// DefaultSuggestions are the starter questions offered in an empty chat.
var DefaultSuggestions = []string{
	"Summarize the key points",
	"What are the main takeaways?",
	"Explain the methodology",
	"What are the limitations?",
}

// NoSourcesHint replaces the suggestions while they are disabled.
const NoSourcesHint = "Select sources first"

// Suggestions is the list of starter questions. It is disabled until the
// notebook has at least one source selected.
type Suggestions struct {
	Items    []string
	Enabled  bool
	selected int
	theme    *styles.Theme
}

// NewSuggestions creates an enabled list of the default questions.
func NewSuggestions(theme *styles.Theme) Suggestions {
	items := make([]string, len(DefaultSuggestions))
	copy(items, DefaultSuggestions)
	return Suggestions{Items: items, Enabled: true, theme: theme}
}

// Next moves the selection down, wrapping around.
func (s *Suggestions) Next() {
	if len(s.Items) == 0 {
		return
	}
	s.selected = (s.selected + 1) % len(s.Items)
}

// Prev moves the selection up, wrapping around.
func (s *Suggestions) Prev() {
	if len(s.Items) == 0 {
		return
	}
	s.selected = (s.selected - 1 + len(s.Items)) % len(s.Items)
}

// Selected returns the highlighted question. ok is false while disabled.
func (s Suggestions) Selected() (string, bool) {
	if !s.Enabled || len(s.Items) == 0 {
		return "", false
	}
	return s.Items[s.selected], true
}

// View renders the list, one question per line.
func (s Suggestions) View() string {
	if len(s.Items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(s.Items)+1)
	for i, item := range s.Items {
		switch {
		case !s.Enabled:
			lines = append(lines, s.theme.SuggestionOff.Render(item))
		case i == s.selected:
			lines = append(lines, s.theme.SuggestionActive.Render(item))
		default:
			lines = append(lines, s.theme.Suggestion.Render(item))
		}
	}
	if !s.Enabled {
		lines = append(lines, s.theme.Help.Render(NoSourcesHint))
	}
	return strings.Join(lines, "\n")
}
