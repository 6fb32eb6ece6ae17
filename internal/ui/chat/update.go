// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/internal/ui/components"
	"github.com/jeranaias/citeview/pkg/logger"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case MessagesLoadedMsg:
		return m.handleMessagesLoaded(msg)

	case AnswerMsg:
		return m.handleAnswer(msg)

	case SessionCreatedMsg:
		return m.handleSessionCreated(msg)

	case SessionRenamedMsg:
		if msg.Err != nil {
			return m, m.addToast(components.NewErrorToast(msg.Err.Error()))
		}
		return m, tea.Batch(m.addToast(components.NewSuccessToast(NoticeRenamed)), m.reloadSessions())

	case SessionDeletedMsg:
		if msg.Err != nil {
			return m, m.addToast(components.NewErrorToast(msg.Err.Error()))
		}
		return m, tea.Batch(m.addToast(components.NewSuccessToast(NoticeDeleted)), m.reloadSessions())

	case SourceViewedMsg:
		return m.handleSourceViewed(msg)

	case SearchResultsMsg:
		if msg.Err != nil {
			logger.WithFields(logrus.Fields{"error": msg.Err.Error()}).Warn("SIDEBAR_SEARCH_FAILED")
			return m, nil
		}
		if msg.Query == m.sidebar.Query() {
			m.sidebar.SetContentHits(msg.Query, msg.SessionIDs)
		}
		return m, nil

	case IndexRebuiltMsg:
		if msg.Err != nil {
			logger.WithFields(logrus.Fields{"error": msg.Err.Error()}).Warn("SEARCH_INDEX_FAILED")
		}
		return m, nil

	case components.SkeletonTickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.skeleton, cmd = m.skeleton.Update(msg)
		return m, cmd

	case components.ToastTickMsg:
		if m.toasts.Expire(msg.Time) {
			return m, components.ToastTickCmd()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.thinking, cmd = m.thinking.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// DATA HANDLERS
// =============================================================================

func (m Model) handleSessionsLoaded(msg SessionsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.state = StateReady
		logger.WithFields(logrus.Fields{"error": msg.Err.Error()}).Error("SESSIONS_LOAD_FAILED")
		return m, m.addToast(components.NewErrorToast(NoticeLoadFailed))
	}

	m.sessions = msg.Sessions
	m.sidebar.SetSessions(msg.Sessions)

	found := false
	for _, s := range msg.Sessions {
		if s.ID == m.activeID {
			found = true
			break
		}
	}
	if !found && m.activeID != "" {
		m.activeID = ""
		m.messages = nil
		m.rebuildCites()
	}

	if m.activeID == "" && len(msg.Sessions) > 0 {
		m.activeID = msg.Sessions[0].ID
		m.sidebar.SetActive(m.activeID)
		m.header.Title = session.CurrentTitle(m.sessions, m.activeID)
		return m, loadMessagesCmd(m.opts.Store, m.activeID)
	}

	m.sidebar.SetActive(m.activeID)
	m.header.Title = session.CurrentTitle(m.sessions, m.activeID)
	m.state = StateReady
	m.refresh()
	return m, nil
}

func (m Model) handleMessagesLoaded(msg MessagesLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.SessionID != m.activeID {
		return m, nil
	}
	m.state = StateReady
	if msg.Err != nil {
		logger.WithFields(logrus.Fields{
			"session_id": msg.SessionID,
			"error":      msg.Err.Error(),
		}).Error("MESSAGES_LOAD_FAILED")
		return m, m.addToast(components.NewErrorToast(NoticeLoadFailed))
	}

	m.messages = msg.Messages
	m.rebuildCites()
	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleAnswer(msg AnswerMsg) (tea.Model, tea.Cmd) {
	m.pending = false
	m.thinking.Stop()

	var cmds []tea.Cmd
	if msg.Err != nil {
		logger.WithFields(logrus.Fields{
			"session_id": msg.SessionID,
			"error":      msg.Err.Error(),
		}).Warn("ASK_FAILED")
		cmds = append(cmds, m.addToast(components.NewErrorToast(NoticeAskFailed)))
	}
	if msg.SessionID == m.activeID {
		cmds = append(cmds, loadMessagesCmd(m.opts.Store, m.activeID))
	}
	cmds = append(cmds, m.reloadSessions())
	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) handleSessionCreated(msg SessionCreatedMsg) (tea.Model, tea.Cmd) {
	m.pending = false
	if msg.Err != nil {
		return m, m.addToast(components.NewErrorToast(msg.Err.Error()))
	}
	m.activeID = msg.Session.ID
	m.messages = nil
	m.rebuildCites()
	m.sidebar.SetActive(m.activeID)
	m.header.Title = msg.Session.DisplayTitle()

	cmds := []tea.Cmd{loadSessionsCmd(m.opts.Store)}
	if msg.Question != "" {
		cmds = append(cmds, m.startAsk(msg.Question))
	}
	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) handleSourceViewed(msg SourceViewedMsg) (tea.Model, tea.Cmd) {
	m.refresh()
	switch msg.Result.Status {
	case source.StatusNotAvailable:
		return m, m.addToast(components.NewWarningToast(msg.Result.Notice))
	case source.StatusFailed:
		return m, m.addToast(components.NewErrorToast(msg.Result.Notice))
	}
	return m, nil
}

// reloadSessions refreshes the list and, when enabled, the search index.
func (m Model) reloadSessions() tea.Cmd {
	cmds := []tea.Cmd{loadSessionsCmd(m.opts.Store)}
	if m.opts.Index != nil {
		cmds = append(cmds, rebuildIndexCmd(m.opts.Index, m.opts.Store))
	}
	return tea.Batch(cmds...)
}

// addToast shows t and starts the expiry ticker if it was idle.
func (m Model) addToast(t components.Toast) tea.Cmd {
	idle := m.toasts.Len() == 0
	m.toasts.Add(t)
	if idle {
		return components.ToastTickCmd()
	}
	return nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.sidebar.Renaming() {
		return m.handleRenameKey(msg)
	}
	if m.sidebar.Searching() {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Sidebar):
		m.showSidebar = !m.showSidebar
		if m.showSidebar {
			m.setFocus(focusSidebar)
		} else if m.focus == focusSidebar {
			m.setFocus(focusInput)
		}
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.NextCite):
		if m.moveCite(1) {
			m.setFocus(focusMessages)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevCite):
		if m.moveCite(-1) {
			m.setFocus(focusMessages)
			m.refresh()
		}
		return m, nil
	}

	switch m.focus {
	case focusMessages:
		return m.handleMessagesKey(msg)
	case focusSidebar:
		return m.handleSidebarKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	empty := strings.TrimSpace(m.input.Value()) == ""

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Back):
		m.setFocus(focusMessages)
		return m, nil

	case msg.Type == tea.KeyUp && empty && len(m.messages) == 0:
		m.suggestions.Prev()
		m.refresh()
		return m, nil

	case msg.Type == tea.KeyDown && empty && len(m.messages) == 0:
		m.suggestions.Next()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleMessagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Popover):
		if m.citeIdx >= 0 {
			m.popoverOpen = !m.popoverOpen
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.View):
		return m.viewSource()

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastReply()

	case key.Matches(msg, m.keys.Back):
		if m.popoverOpen {
			m.popoverOpen = false
			m.refresh()
			return m, nil
		}
		m.setFocus(focusInput)
		return m, nil

	case key.Matches(msg, m.keys.Insert):
		m.popoverOpen = false
		m.setFocus(focusInput)
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()

	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()

	case key.Matches(msg, m.keys.Open):
		id := m.sidebar.SelectedID()
		if id == "" || id == m.activeID {
			return m, nil
		}
		m.activeID = id
		m.sidebar.SetActive(id)
		m.header.Title = session.CurrentTitle(m.sessions, id)
		m.setFocus(focusInput)
		return m, loadMessagesCmd(m.opts.Store, id)

	case key.Matches(msg, m.keys.Search):
		m.sidebar.BeginSearch()

	case key.Matches(msg, m.keys.Rename):
		m.sidebar.BeginRename()

	case key.Matches(msg, m.keys.Delete):
		id := m.sidebar.SelectedID()
		if id == "" {
			return m, nil
		}
		if !m.sidebar.CanDeleteSelected() {
			return m, m.addToast(components.NewWarningToast(NoticeDeleteActive))
		}
		return m, deleteSessionCmd(m.opts.Store, id)

	case key.Matches(msg, m.keys.New):
		m.setFocus(focusInput)
		return m, createSessionCmd(m.opts.Store, "")

	case key.Matches(msg, m.keys.Back):
		m.setFocus(focusInput)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.sidebar.EndSearch(false)
		return m, nil
	case tea.KeyEsc:
		m.sidebar.EndSearch(true)
		return m, nil
	}

	before := m.sidebar.Query()
	input := m.sidebar.SearchInput()
	updated, cmd := input.Update(msg)
	*input = updated

	query := m.sidebar.Query()
	if query == before {
		return m, cmd
	}
	m.sidebar.SetContentHits(query, nil)
	if query != "" && m.opts.Index != nil {
		return m, tea.Batch(cmd, searchCmd(m.opts.Index, query))
	}
	return m, cmd
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		id, title, ok := m.sidebar.CommitRename()
		if !ok {
			return m, nil
		}
		return m, renameSessionCmd(m.opts.Store, id, title)
	case tea.KeyEsc:
		m.sidebar.CancelRename()
		return m, nil
	}

	input := m.sidebar.RenameInput()
	updated, cmd := input.Update(msg)
	*input = updated
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" && len(m.messages) == 0 {
		if q, ok := m.suggestions.Selected(); ok {
			text = q
		}
	}
	if text == "" {
		return m, nil
	}
	if m.pending {
		return m, m.addToast(components.NewStatusToast(NoticeStillWaiting))
	}
	if m.opts.Responder == nil {
		return m, m.addToast(components.NewErrorToast(NoticeNoResponder))
	}

	m.input.Reset()
	if m.activeID == "" {
		m.pending = true
		return m, createSessionCmd(m.opts.Store, text)
	}
	cmd := m.startAsk(text)
	return m, cmd
}

// startAsk shows the question at once and sends it to the responder.
func (m *Model) startAsk(question string) tea.Cmd {
	m.pending = true
	m.messages = append(m.messages, *model.NewMessage(model.RoleUser, question))
	m.rebuildCites()
	m.refresh()
	m.viewport.GotoBottom()
	return tea.Batch(askCmd(m.opts.Responder, m.activeID, question), m.thinking.Start())
}

func (m Model) viewSource() (tea.Model, tea.Cmd) {
	seg, ok := m.FocusedCitation()
	if !ok || seg.Citation == nil || !seg.Citation.Viewable() {
		return m, nil
	}
	c := *seg.Citation
	if m.opts.Viewer == nil {
		return m, m.addToast(components.NewWarningToast(source.NoticeNotAvailable))
	}
	tracker := m.opts.Viewer.Loading()
	if tracker.IsLoading(c.SourceID) {
		return m, nil
	}
	if c.HasSource() {
		tracker.Begin(c.SourceID)
	}
	m.refresh()
	return m, viewSourceCmd(m.opts.Viewer, c)
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	reply := m.lastAssistant()
	if reply == nil || reply.Content == "" {
		return m, m.addToast(components.NewStatusToast(NoticeNothingCopy))
	}
	if err := m.opts.Clipboard(reply.Content); err != nil {
		logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("CLIPBOARD_FAILED")
		return m, m.addToast(components.NewErrorToast(NoticeCopyFailed))
	}
	return m, m.addToast(components.NewSuccessToast(NoticeCopied))
}
