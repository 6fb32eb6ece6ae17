// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/citeview/internal/ui/styles"
)

// ThinkingText is shown while the assistant composes a reply.
const ThinkingText = "Thinking..."

// ThinkingIndicator is the animated "Thinking..." line under the last
// question.
type ThinkingIndicator struct {
	spinner   spinner.Model
	theme     *styles.Theme
	active    bool
	startTime time.Time
	now       func() time.Time
}

// NewThinkingIndicator creates an idle indicator.
func NewThinkingIndicator(theme *styles.Theme) ThinkingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}
	s.Style = theme.Spinner
	return ThinkingIndicator{spinner: s, theme: theme, now: time.Now}
}

// Start begins the animation and returns the first tick.
func (t *ThinkingIndicator) Start() tea.Cmd {
	t.active = true
	t.startTime = t.now()
	return t.spinner.Tick
}

// Stop ends the animation.
func (t *ThinkingIndicator) Stop() {
	t.active = false
}

// IsActive reports whether the indicator is running.
func (t ThinkingIndicator) IsActive() bool {
	return t.active
}

// Elapsed returns the time since Start.
func (t ThinkingIndicator) Elapsed() time.Duration {
	if t.startTime.IsZero() {
		return 0
	}
	return t.now().Sub(t.startTime)
}

// Update advances the animation. Ticks are dropped while stopped so the
// loop ends on its own.
func (t ThinkingIndicator) Update(msg tea.Msg) (ThinkingIndicator, tea.Cmd) {
	if !t.active {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator, or "" while stopped.
func (t ThinkingIndicator) View() string {
	if !t.active {
		return ""
	}
	out := t.spinner.View() + " " + t.theme.ThinkingText.Render(ThinkingText)
	if secs := int(t.Elapsed().Seconds()); secs >= 1 {
		out += t.theme.Timestamp.Render(" (" + strconv.Itoa(secs) + "s)")
	}
	return out
}
