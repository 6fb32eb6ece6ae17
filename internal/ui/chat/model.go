// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
	"github.com/jeranaias/citeview/internal/search"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/internal/ui/components"
	"github.com/jeranaias/citeview/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat screen.
type State int

const (
	StateLoading State = iota // Waiting for the first session list
	StateReady                // Showing a session
)

// focus is the area receiving keys.
type focus int

const (
	focusInput focus = iota
	focusMessages
	focusSidebar
)

// Layout constants.
const (
	sidebarWidth = 32
	headerHeight = 1
	inputHeight  = 2
	helpHeight   = 1
	statusHeight = 1
)

// Notices shown as toasts.
const (
	NoticeCopied       = "Copied to clipboard"
	NoticeCopyFailed   = "Failed to copy"
	NoticeNothingCopy  = "No reply to copy"
	NoticeAskFailed    = "Failed to get a response"
	NoticeStillWaiting = "Still waiting for the last answer"
	NoticeLoadFailed   = "Failed to load chats"
	NoticeDeleteActive = "The open chat cannot be deleted"
	NoticeDeleted      = "Chat deleted"
	NoticeRenamed      = "Chat renamed"
	NoticeNoResponder  = "Asking is not available offline"
	EmptyChatPrompt    = "Ask a question about your sources"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the chat screen to its collaborators.
type Options struct {
	Store session.Store

	// Responder answers questions. Defaults to Store when it implements
	// session.Responder.
	Responder session.Responder

	// Viewer opens cited sources. Nil disables the view action.
	Viewer *source.Viewer

	// Index enables content search in the sidebar.
	Index *search.Index

	Theme *styles.Theme

	// GlamourStyle names the markdown style; "" detects it.
	GlamourStyle string

	ShowCost bool

	// HasSources enables the suggested questions.
	HasSources bool

	// Clipboard writes text to the system clipboard.
	Clipboard func(string) error
}

// citeRef locates one citation marker in the conversation.
type citeRef struct {
	msg     int
	ordinal int
	seg     citation.Segment
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	opts  Options
	keys  KeyMap
	theme *styles.Theme

	state State
	focus focus

	width  int
	height int

	viewport viewport.Model
	input    textinput.Model
	renderer *render.Terminal

	header      *components.Header
	sidebar     *components.Sidebar
	showSidebar bool
	skeleton    components.Skeleton
	thinking    components.ThinkingIndicator
	toasts      *components.ToastManager
	suggestions components.Suggestions

	sessions []model.SessionMeta
	activeID string
	messages []model.Message

	// cites lists every marker of every assistant message in display
	// order. citeIdx is the focused entry or -1.
	cites       []citeRef
	citeIdx     int
	popoverOpen bool

	// msgOffsets is the first viewport line of each message.
	msgOffsets []int

	pending bool
}

// New creates the chat model.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.Responder == nil {
		if r, ok := opts.Store.(session.Responder); ok {
			opts.Responder = r
		}
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	theme := opts.Theme

	input := textinput.New()
	input.Placeholder = EmptyChatPrompt
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 4000
	input.Focus()

	suggestions := components.NewSuggestions(theme)
	suggestions.Enabled = opts.HasSources

	m := Model{
		opts:        opts,
		keys:        DefaultKeyMap(),
		theme:       theme,
		state:       StateLoading,
		focus:       focusInput,
		viewport:    viewport.New(80, 20),
		input:       input,
		header:      components.NewHeader(theme),
		sidebar:     components.NewSidebar(theme),
		skeleton:    components.NewSkeleton(components.SkeletonNotebookPage, theme),
		thinking:    components.NewThinkingIndicator(theme),
		toasts:      components.NewToastManager(),
		suggestions: suggestions,
		citeIdx:     -1,
	}
	m.header.Title = model.DefaultSessionTitle
	m.resize(80, 24)
	return m
}

// Init starts loading sessions.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadSessionsCmd(m.opts.Store),
		components.SkeletonTick(),
		textinput.Blink,
	}
	if m.opts.Index != nil {
		cmds = append(cmds, rebuildIndexCmd(m.opts.Index, m.opts.Store))
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current state.
func (m Model) State() State {
	return m.state
}

// ActiveSessionID returns the open session.
func (m Model) ActiveSessionID() string {
	return m.activeID
}

// Messages returns the messages on screen.
func (m Model) Messages() []model.Message {
	return m.messages
}

// FocusedCitation returns the focused marker, if any.
func (m Model) FocusedCitation() (citation.Segment, bool) {
	if m.citeIdx < 0 || m.citeIdx >= len(m.cites) {
		return citation.Segment{}, false
	}
	return m.cites[m.citeIdx].seg, true
}

// PopoverOpen reports whether the citation popover is showing.
func (m Model) PopoverOpen() bool {
	return m.popoverOpen
}

// Pending reports whether a question is awaiting its answer.
func (m Model) Pending() bool {
	return m.pending
}

// Toasts returns the visible notifications.
func (m Model) Toasts() []components.Toast {
	return m.toasts.Toasts()
}

// SidebarVisible reports whether the session list is shown.
func (m Model) SidebarVisible() bool {
	return m.showSidebar
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	chatWidth := width
	if m.showSidebar {
		chatWidth -= sidebarWidth
	}
	if chatWidth < 20 {
		chatWidth = 20
	}

	vpHeight := height - headerHeight - inputHeight - helpHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight
	m.input.Width = chatWidth - 4
	m.header.Width = width
	m.sidebar.Width = sidebarWidth
	m.sidebar.Height = vpHeight + statusHeight
	m.skeleton.SetSize(width, vpHeight)

	m.renderer = m.newRenderer(chatWidth - 4)
	m.refresh()
}

func (m *Model) newRenderer(width int) *render.Terminal {
	chips := components.ChipStyles(m.theme)
	term, err := render.NewTerminal(render.TerminalOptions{
		Width: width,
		Style: m.opts.GlamourStyle,
		Chips: &chips,
	})
	if err != nil {
		return m.renderer
	}
	return term
}

// =============================================================================
// CITATIONS
// =============================================================================

func (m *Model) rebuildCites() {
	m.cites = nil
	for i := range m.messages {
		msg := &m.messages[i]
		if !msg.IsAssistant() {
			continue
		}
		for ord, seg := range citation.Markers(citation.Split(msg.Content, msg.Citations)) {
			m.cites = append(m.cites, citeRef{msg: i, ordinal: ord, seg: seg})
		}
	}
	m.citeIdx = -1
	m.popoverOpen = false
}

// moveCite shifts citation focus by delta, wrapping around.
func (m *Model) moveCite(delta int) bool {
	n := len(m.cites)
	if n == 0 {
		return false
	}
	if m.citeIdx < 0 {
		if delta > 0 {
			m.citeIdx = 0
		} else {
			m.citeIdx = n - 1
		}
	} else {
		m.citeIdx = ((m.citeIdx+delta)%n + n) % n
	}
	m.popoverOpen = false
	return true
}

func (m Model) loadingID() string {
	if m.opts.Viewer == nil {
		return ""
	}
	return m.opts.Viewer.Loading().Current()
}

func (m Model) lastAssistant() *model.Message {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].IsAssistant() {
			return &m.messages[i]
		}
	}
	return nil
}
