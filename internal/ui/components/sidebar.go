// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/ui/styles"
)

// Sidebar labels.
const (
	SidebarTitle      = "Chats"
	SidebarEmpty      = "No chats yet"
	SidebarNoMatches  = "No matching chats"
	SidebarSearchHint = "/ to search"
)

// =============================================================================
// SIDEBAR
// =============================================================================

// Sidebar lists sessions with a search box and inline rename.
type Sidebar struct {
	Width  int
	Height int

	sessions []model.SessionMeta
	titles   map[string]string
	activeID string
	cursor   int

	search    textinput.Model
	searching bool

	// contentHits holds sessions whose messages match hitsQuery, from the
	// full-text index. They only apply while the query is unchanged.
	contentHits map[string]bool
	hitsQuery   string

	rename      session.Rename
	renameInput textinput.Model

	theme *styles.Theme
	now   func() time.Time
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	search := textinput.New()
	search.Placeholder = "Search chats"
	search.Prompt = "/ "
	search.CharLimit = 100

	rename := textinput.New()
	rename.Prompt = ""
	rename.CharLimit = 200

	return &Sidebar{
		Width:       30,
		Height:      20,
		titles:      map[string]string{},
		search:      search,
		renameInput: rename,
		theme:       theme,
		now:         time.Now,
	}
}

// SetSessions replaces the listed sessions. The cursor stays on the same
// session when it still exists.
func (s *Sidebar) SetSessions(metas []model.SessionMeta) {
	prev := s.SelectedID()
	s.sessions = metas
	s.titles = session.DisplayTitles(metas)
	s.cursor = 0
	for i, m := range s.Visible() {
		if m.ID == prev {
			s.cursor = i
			break
		}
	}
}

// SetActive marks the session currently open in the chat.
func (s *Sidebar) SetActive(id string) {
	s.activeID = id
}

// ActiveID returns the open session.
func (s *Sidebar) ActiveID() string {
	return s.activeID
}

// SetContentHits records the sessions whose messages match query. Hits for
// any other query than the current one are not shown.
func (s *Sidebar) SetContentHits(query string, ids []string) {
	s.hitsQuery = strings.TrimSpace(query)
	s.contentHits = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.contentHits[id] = true
	}
	s.clampCursor()
}

// Visible returns the sessions that pass the search filter: those whose
// title matches plus those with matching content.
func (s *Sidebar) Visible() []model.SessionMeta {
	query := s.Query()
	if query == "" {
		return s.sessions
	}
	hits := s.contentHits
	if s.hitsQuery != query {
		hits = nil
	}
	byTitle := session.Filter(s.sessions, query)
	keep := make(map[string]bool, len(byTitle))
	for _, m := range byTitle {
		keep[m.ID] = true
	}
	var out []model.SessionMeta
	for _, m := range s.sessions {
		if keep[m.ID] || hits[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// NAVIGATION
// =============================================================================

// MoveUp moves the cursor up one row.
func (s *Sidebar) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// MoveDown moves the cursor down one row.
func (s *Sidebar) MoveDown() {
	if s.cursor < len(s.Visible())-1 {
		s.cursor++
	}
}

// SelectedID returns the session under the cursor, or "".
func (s *Sidebar) SelectedID() string {
	visible := s.Visible()
	if s.cursor < 0 || s.cursor >= len(visible) {
		return ""
	}
	return visible[s.cursor].ID
}

func (s *Sidebar) clampCursor() {
	n := len(s.Visible())
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// =============================================================================
// SEARCH
// =============================================================================

// BeginSearch focuses the search box.
func (s *Sidebar) BeginSearch() {
	s.searching = true
	s.search.Focus()
}

// EndSearch blurs the search box, keeping the query. clear also resets it.
func (s *Sidebar) EndSearch(clear bool) {
	s.searching = false
	s.search.Blur()
	if clear {
		s.search.SetValue("")
		s.contentHits = nil
		s.hitsQuery = ""
	}
	s.clampCursor()
}

// Searching reports whether the search box has focus.
func (s *Sidebar) Searching() bool {
	return s.searching
}

// Query returns the trimmed search text.
func (s *Sidebar) Query() string {
	return strings.TrimSpace(s.search.Value())
}

// SearchInput exposes the search box for key handling.
func (s *Sidebar) SearchInput() *textinput.Model {
	return &s.search
}

// =============================================================================
// RENAME
// =============================================================================

// BeginRename starts editing the selected session's title.
func (s *Sidebar) BeginRename() bool {
	id := s.SelectedID()
	if id == "" {
		return false
	}
	current := session.CurrentTitle(s.sessions, id)
	s.rename.Begin(id, current)
	s.renameInput.SetValue(current)
	s.renameInput.CursorEnd()
	s.renameInput.Focus()
	return true
}

// Renaming reports whether a rename is in progress.
func (s *Sidebar) Renaming() bool {
	return s.rename.Active()
}

// RenameInput exposes the rename editor for key handling.
func (s *Sidebar) RenameInput() *textinput.Model {
	return &s.renameInput
}

// CommitRename ends the edit. ok is false when the title was blank, which
// cancels the rename.
func (s *Sidebar) CommitRename() (id, title string, ok bool) {
	s.rename.Draft = s.renameInput.Value()
	s.renameInput.Blur()
	return s.rename.Commit()
}

// CancelRename abandons the edit.
func (s *Sidebar) CancelRename() {
	s.rename.Cancel()
	s.renameInput.Blur()
}

// CanDeleteSelected reports whether the selected session may be deleted.
// The open session cannot.
func (s *Sidebar) CanDeleteSelected() bool {
	return session.CanDelete(s.SelectedID(), s.activeID)
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the sidebar.
func (s *Sidebar) View() string {
	inner := s.Width - 2
	if inner < 10 {
		inner = 10
	}

	lines := []string{s.theme.HeaderTitle.Render(SidebarTitle)}
	if s.searching || s.Query() != "" {
		s.search.Width = inner - 2
		lines = append(lines, s.theme.SidebarSearch.Width(inner).Render(s.search.View()))
	} else {
		lines = append(lines, s.theme.Help.Render(SidebarSearchHint))
	}
	lines = append(lines, "")

	visible := s.Visible()
	switch {
	case len(s.sessions) == 0:
		lines = append(lines, s.theme.SessionMeta.Render(SidebarEmpty))
	case len(visible) == 0:
		lines = append(lines, s.theme.SessionMeta.Render(SidebarNoMatches))
	}

	now := s.now()
	for i, m := range visible {
		lines = append(lines, s.renderItem(m, i == s.cursor, inner, now)...)
	}

	if s.Height > 0 && len(lines) > s.Height {
		lines = lines[:s.Height]
	}
	return s.theme.Sidebar.Width(s.Width).Render(strings.Join(lines, "\n"))
}

func (s *Sidebar) renderItem(m model.SessionMeta, selected bool, width int, now time.Time) []string {
	var title string
	if s.rename.Active() && s.rename.ID == m.ID {
		s.renameInput.Width = width - 2
		title = s.renameInput.View()
	} else {
		title = truncate(s.titles[m.ID], width)
		switch {
		case selected:
			title = s.theme.SessionItemSelected.Render(padRight(title, width))
		case m.ID == s.activeID:
			title = s.theme.SessionItemActive.Render(title)
		default:
			title = s.theme.SessionItem.Render(title)
		}
	}

	meta := session.RelativeTime(m.UpdatedAt, now) + " · " + session.FormatMessageCount(m.MessageCount)
	return []string{title, s.theme.SessionMeta.Render(truncate(meta, width))}
}

// RenderedWidth returns the width the sidebar occupies on screen.
func (s *Sidebar) RenderedWidth() int {
	return lipgloss.Width(s.View())
}
