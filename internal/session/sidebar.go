// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/jeranaias/citeview/internal/model"
)

// Filter returns the sessions whose display title contains query, ignoring
// case. A blank query returns metas unchanged.
func Filter(metas []model.SessionMeta, query string) []model.SessionMeta {
	query = strings.TrimSpace(query)
	if query == "" {
		return metas
	}
	fold := cases.Fold()
	needle := fold.String(query)

	var out []model.SessionMeta
	for _, m := range metas {
		if strings.Contains(fold.String(m.DisplayTitle()), needle) {
			out = append(out, m)
		}
	}
	return out
}

// DisplayTitles maps session id to the title shown in the sidebar. Titles
// shared by more than one session get the local creation time appended,
// e.g. "Notes (14:05)".
func DisplayTitles(metas []model.SessionMeta) map[string]string {
	counts := make(map[string]int, len(metas))
	for _, m := range metas {
		counts[m.DisplayTitle()]++
	}

	out := make(map[string]string, len(metas))
	for _, m := range metas {
		title := m.DisplayTitle()
		if counts[title] > 1 {
			title = fmt.Sprintf("%s (%s)", title, m.CreatedAt.Local().Format("15:04"))
		}
		out[m.ID] = title
	}
	return out
}

// RelativeTime formats t relative to now for the sidebar.
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	mins := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Local().Format("1/2/2006")
	}
}

// FormatMessageCount returns the "N msgs" label.
func FormatMessageCount(n int) string {
	return fmt.Sprintf("%d msgs", n)
}

// NormalizeTitle trims a proposed title. ok is false when nothing is left,
// which cancels a rename.
func NormalizeTitle(title string) (string, bool) {
	title = strings.TrimSpace(title)
	return title, title != ""
}

// CanDelete reports whether id may be deleted while activeID is open.
func CanDelete(id, activeID string) bool {
	return id != "" && id != activeID
}

// CurrentTitle returns the display title of the session with id, or the
// default title when it is unknown.
func CurrentTitle(metas []model.SessionMeta, id string) string {
	for _, m := range metas {
		if m.ID == id {
			return m.DisplayTitle()
		}
	}
	return model.DefaultSessionTitle
}

// Rename is the inline title editor state. The zero value is inactive.
type Rename struct {
	ID    string
	Draft string
}

// Begin starts editing id with its current title.
func (r *Rename) Begin(id, current string) {
	r.ID = id
	r.Draft = current
}

// Active reports whether an edit is in progress.
func (r *Rename) Active() bool {
	return r.ID != ""
}

// Commit ends the edit. It returns the id and trimmed title to save, with
// ok false when the draft was blank and the rename is cancelled.
func (r *Rename) Commit() (id, title string, ok bool) {
	id = r.ID
	title, ok = NormalizeTitle(r.Draft)
	r.Cancel()
	if id == "" {
		return "", "", false
	}
	return id, title, ok
}

// Cancel abandons the edit.
func (r *Rename) Cancel() {
	r.ID = ""
	r.Draft = ""
}
