// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/search"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
)

// storeTimeout bounds every store call made from the UI.
const storeTimeout = 30 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// SessionsLoadedMsg carries the session list.
type SessionsLoadedMsg struct {
	Sessions []model.SessionMeta
	Err      error
}

// MessagesLoadedMsg carries one session's messages.
type MessagesLoadedMsg struct {
	SessionID string
	Messages  []model.Message
	Err       error
}

// AnswerMsg is the responder's reply to a question.
type AnswerMsg struct {
	SessionID string
	Reply     *model.Message
	Err       error
}

// SessionCreatedMsg reports a new session. Question, when set, is asked
// in it right away.
type SessionCreatedMsg struct {
	Session  model.SessionMeta
	Question string
	Err      error
}

// SessionRenamedMsg reports a finished rename.
type SessionRenamedMsg struct {
	ID    string
	Title string
	Err   error
}

// SessionDeletedMsg reports a finished delete.
type SessionDeletedMsg struct {
	ID  string
	Err error
}

// SourceViewedMsg carries the outcome of a view action.
type SourceViewedMsg struct {
	Result source.Result
}

// SearchResultsMsg carries sessions whose content matches Query.
type SearchResultsMsg struct {
	Query      string
	SessionIDs []string
	Err        error
}

// IndexRebuiltMsg reports a finished search index rebuild.
type IndexRebuiltMsg struct {
	Err error
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

func loadSessionsCmd(store session.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		metas, err := store.ListSessions(ctx)
		return SessionsLoadedMsg{Sessions: metas, Err: err}
	}
}

func loadMessagesCmd(store session.Store, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		msgs, err := store.Messages(ctx, id)
		return MessagesLoadedMsg{SessionID: id, Messages: msgs, Err: err}
	}
}

func askCmd(responder session.Responder, id, question string) tea.Cmd {
	return func() tea.Msg {
		reply, err := responder.Ask(context.Background(), id, question)
		return AnswerMsg{SessionID: id, Reply: reply, Err: err}
	}
}

func createSessionCmd(store session.Store, question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		meta, err := store.CreateSession(ctx, "")
		return SessionCreatedMsg{Session: meta, Question: question, Err: err}
	}
}

func renameSessionCmd(store session.Store, id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		err := store.RenameSession(ctx, id, title)
		return SessionRenamedMsg{ID: id, Title: title, Err: err}
	}
}

func deleteSessionCmd(store session.Store, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return SessionDeletedMsg{ID: id, Err: store.DeleteSession(ctx, id)}
	}
}

// viewSourceCmd runs the view action off the update loop. There is no
// retry; the result arrives as a SourceViewedMsg whenever it completes.
func viewSourceCmd(viewer *source.Viewer, c model.Citation) tea.Cmd {
	return func() tea.Msg {
		return SourceViewedMsg{Result: viewer.Open(context.Background(), c)}
	}
}

func searchCmd(idx *search.Index, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		ids, err := idx.SessionIDs(ctx, query)
		return SearchResultsMsg{Query: query, SessionIDs: ids, Err: err}
	}
}

func rebuildIndexCmd(idx *search.Index, store session.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return IndexRebuiltMsg{Err: idx.Rebuild(ctx, store)}
	}
}
