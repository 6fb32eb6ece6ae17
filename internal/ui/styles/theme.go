// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability once at creation.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER AND LAYOUT
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	Divider     lipgloss.Style
	Help        lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantBody  lipgloss.Style
	Cost           lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// CITATIONS
	// ==========================================================================

	ChipResolved   lipgloss.Style
	ChipUnresolved lipgloss.Style
	ChipFocused    lipgloss.Style
	PopoverBox     lipgloss.Style
	PopoverTitle   lipgloss.Style
	PopoverBody    lipgloss.Style
	PopoverAction  lipgloss.Style
	PopoverMuted   lipgloss.Style
	FooterHeading  lipgloss.Style
	FooterItem     lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	Suggestion       lipgloss.Style
	SuggestionActive lipgloss.Style
	SuggestionOff    lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar             lipgloss.Style
	SidebarSearch       lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionItemActive   lipgloss.Style
	SessionMeta         lipgloss.Style

	// ==========================================================================
	// LOADING
	// ==========================================================================

	Spinner       lipgloss.Style
	ThinkingText  lipgloss.Style
	SkeletonBlock lipgloss.Style
	SkeletonShine lipgloss.Style

	// ==========================================================================
	// STATUS
	// ==========================================================================

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
	LinkStyle    lipgloss.Style
}

// NewTheme creates a theme from the detected terminal capabilities.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	return NewThemeWithProfile(profile, termenv.HasDarkBackground())
}

// NewThemeWithProfile creates a theme for an explicit color profile.
func NewThemeWithProfile(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		Width:        80,
		Height:       24,
	}
	t.initStyles()
	return t
}

// SetSize records the terminal size.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Divider = lipgloss.NewStyle().
		Foreground(Overlay)

	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)

	t.AssistantBody = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder)

	t.Cost = lipgloss.NewStyle().
		Foreground(Amber)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Citations
	t.ChipResolved = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.ChipUnresolved = lipgloss.NewStyle().
		Foreground(TextMuted).
		Strikethrough(true)

	t.ChipFocused = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(FocusRing).
		Bold(true)

	t.PopoverBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.PopoverTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.PopoverBody = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.PopoverAction = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)

	t.PopoverMuted = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.FooterHeading = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.FooterItem = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Suggestion = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SuggestionActive = t.Suggestion.
		BorderForeground(Cyan).
		Foreground(Cyan)

	t.SuggestionOff = t.Suggestion.
		Foreground(TextMuted)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	t.SidebarSearch = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)

	t.SessionItem = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.SessionItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg)

	t.SessionItemActive = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.SessionMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Loading
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.SkeletonBlock = lipgloss.NewStyle().
		Background(SkeletonBase)

	t.SkeletonShine = lipgloss.NewStyle().
		Background(SkeletonShine)

	// Status
	t.SuccessStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.InfoStyle = lipgloss.NewStyle().Foreground(LinkColor).Bold(true)
	t.LinkStyle = lipgloss.NewStyle().Foreground(LinkColor).Underline(true)
}
