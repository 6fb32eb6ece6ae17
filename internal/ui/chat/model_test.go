// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/search"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/internal/ui/components"
	"github.com/jeranaias/citeview/internal/ui/styles"
)

const fixtureJSON = `{
  "sessions": [
    {
      "id": "s1",
      "title": "Quarterly review",
      "created_at": "2025-03-01T09:00:00Z",
      "updated_at": "2025-03-02T09:00:00Z",
      "messages": [
        {"id": "m1", "role": "user", "content": "How did revenue change?"},
        {"id": "m2", "role": "assistant", "cost_usd": 0.0021,
         "content": "Revenue rose [1] while costs fell [2]. See also [7].",
         "citations": [
           {"number": 1, "source_id": "src-1", "source_name": "Annual report", "text": "Revenue grew 12%", "file_path": "report.pdf"},
           {"number": 2, "source_name": "Board minutes", "file_path": "minutes.pdf"}
         ]}
      ]
    },
    {
      "id": "s2",
      "title": "Hiring notes",
      "created_at": "2025-02-01T09:00:00Z",
      "updated_at": "2025-03-01T09:00:00Z",
      "messages": [
        {"id": "m3", "role": "user", "content": "Who joined?"},
        {"id": "m4", "role": "assistant", "content": "Two hires [1].",
         "citations": [{"number": 1, "source_name": "HR log"}]}
      ]
    }
  ]
}`

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeResolver struct {
	mu    sync.Mutex
	calls []string
	url   string
	err   error
}

func (f *fakeResolver) View(ctx context.Context, id string) (*source.Locator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &source.Locator{URL: f.url}, nil
}

func (f *fakeResolver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type failingStore struct {
	session.Store
}

func (failingStore) ListSessions(ctx context.Context) ([]model.SessionMeta, error) {
	return nil, errors.New("backend down")
}

func loadFixtureStore(t *testing.T) *session.MemoryStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0600))
	store, err := session.LoadFixture(path)
	require.NoError(t, err)
	return store
}

func testOptions(store session.Store) Options {
	return Options{
		Store:        store,
		Theme:        styles.NewThemeWithProfile(termenv.Ascii, true),
		GlamourStyle: "notty",
		ShowCost:     true,
		HasSources:   true,
		Clipboard:    func(string) error { return nil },
	}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// collect runs cmd and returns the messages it produces quickly. Timers
// such as toast and skeleton ticks do not finish in time and are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func isDataMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case SessionsLoadedMsg, MessagesLoadedMsg, AnswerMsg, SessionCreatedMsg,
		SessionRenamedMsg, SessionDeletedMsg, SourceViewedMsg, SearchResultsMsg, IndexRebuiltMsg:
		return true
	}
	return false
}

// settle feeds the data messages produced by cmd back into m until no
// more arrive.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for depth := 0; depth < 10 && cmd != nil; depth++ {
		var next []tea.Cmd
		for _, msg := range collect(cmd) {
			if !isDataMsg(msg) {
				continue
			}
			var c tea.Cmd
			m, c = update(m, msg)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	return update(m, tea.KeyMsg{Type: k})
}

func typeText(m Model, s string) (Model, tea.Cmd) {
	return update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func loaded(t *testing.T, opts Options) Model {
	t.Helper()
	m := New(opts)
	return settle(t, m, loadSessionsCmd(opts.Store))
}

func toastMessages(m Model) []string {
	var out []string
	for _, t := range m.Toasts() {
		out = append(out, t.Message)
	}
	return out
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoad_OpensMostRecentSession(t *testing.T) {
	m := New(testOptions(loadFixtureStore(t)))
	assert.Equal(t, StateLoading, m.State())

	m = settle(t, m, loadSessionsCmd(m.opts.Store))
	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, "s1", m.ActiveSessionID())
	require.Len(t, m.Messages(), 2)

	view := m.View()
	assert.Contains(t, view, "Revenue rose")
	assert.Contains(t, view, "Sources:")
	assert.Contains(t, view, "$0.0021")
	assert.Contains(t, view, "Quarterly review")
}

func TestLoad_Failure(t *testing.T) {
	m := loaded(t, testOptions(failingStore{}))
	assert.Equal(t, StateReady, m.State())
	assert.Contains(t, toastMessages(m), NoticeLoadFailed)
}

func TestSkeletonTicksOnlyWhileLoading(t *testing.T) {
	m := New(testOptions(loadFixtureStore(t)))
	m, cmd := update(m, skeletonTick())
	assert.NotNil(t, cmd)

	m = settle(t, m, loadSessionsCmd(m.opts.Store))
	_, cmd = update(m, skeletonTick())
	assert.Nil(t, cmd)
}

// =============================================================================
// CITATIONS
// =============================================================================

func TestCitationFocusCycles(t *testing.T) {
	m := loaded(t, testOptions(loadFixtureStore(t)))

	_, ok := m.FocusedCitation()
	assert.False(t, ok)

	numbers := []int{}
	for i := 0; i < 4; i++ {
		m, _ = press(m, tea.KeyTab)
		seg, ok := m.FocusedCitation()
		require.True(t, ok)
		numbers = append(numbers, seg.Number)
	}
	assert.Equal(t, []int{1, 2, 7, 1}, numbers)

	m, _ = press(m, tea.KeyShiftTab)
	seg, _ := m.FocusedCitation()
	assert.Equal(t, 7, seg.Number)
	assert.Nil(t, seg.Citation, "[7] has no matching citation")
	assert.Equal(t, focusMessages, m.focus)
}

func TestPopoverToggle(t *testing.T) {
	m := loaded(t, testOptions(loadFixtureStore(t)))
	m, _ = press(m, tea.KeyTab)

	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.PopoverOpen())
	view := m.View()
	assert.Contains(t, view, "[1] Annual report")
	assert.Contains(t, view, `"Revenue grew 12%"`)
	assert.Contains(t, view, "View source")

	m, _ = press(m, tea.KeyEscape)
	assert.False(t, m.PopoverOpen())
	assert.Equal(t, focusMessages, m.focus)

	m, _ = press(m, tea.KeyEscape)
	assert.Equal(t, focusInput, m.focus)
}

// =============================================================================
// SOURCE VIEW
// =============================================================================

func viewerOptions(t *testing.T, res *fakeResolver, opened *[]string) Options {
	opts := testOptions(loadFixtureStore(t))
	var mu sync.Mutex
	opts.Viewer = source.NewViewer(res, source.OpenerFunc(func(url string) error {
		mu.Lock()
		defer mu.Unlock()
		*opened = append(*opened, url)
		return nil
	}))
	return opts
}

func TestViewSource_Opens(t *testing.T) {
	res := &fakeResolver{url: "https://files.example.com/report.pdf"}
	var opened []string
	m := loaded(t, viewerOptions(t, res, &opened))

	m, _ = press(m, tea.KeyTab)
	m, cmd := typeText(m, "v")
	require.NotNil(t, cmd)
	assert.True(t, m.opts.Viewer.Loading().IsLoading("src-1"), "loading shows before the request finishes")

	m = settle(t, m, cmd)
	assert.Equal(t, []string{"src-1"}, res.Calls())
	assert.Equal(t, []string{"https://files.example.com/report.pdf"}, opened)
	assert.False(t, m.opts.Viewer.Loading().IsLoading("src-1"))
	assert.Empty(t, m.Toasts())
}

func TestViewSource_NotAvailableMakesNoRequest(t *testing.T) {
	res := &fakeResolver{url: "https://x"}
	var opened []string
	m := loaded(t, viewerOptions(t, res, &opened))

	m, _ = press(m, tea.KeyTab)
	m, _ = press(m, tea.KeyTab) // [2] has a file but no source id
	m, cmd := typeText(m, "v")
	m = settle(t, m, cmd)

	assert.Empty(t, res.Calls())
	assert.Empty(t, opened)
	assert.Contains(t, toastMessages(m), source.NoticeNotAvailable)
}

func TestViewSource_Failure(t *testing.T) {
	res := &fakeResolver{err: errors.New("502")}
	var opened []string
	m := loaded(t, viewerOptions(t, res, &opened))

	m, _ = press(m, tea.KeyTab)
	m, cmd := typeText(m, "v")
	m = settle(t, m, cmd)

	assert.Len(t, res.Calls(), 1, "no retry")
	assert.Empty(t, opened)
	assert.Contains(t, toastMessages(m), source.NoticeFailed)
}

func TestViewSource_Guards(t *testing.T) {
	res := &fakeResolver{url: "https://x"}
	var opened []string
	m := loaded(t, viewerOptions(t, res, &opened))

	// Unresolved marker offers no view action.
	m, _ = press(m, tea.KeyShiftTab)
	_, cmd := typeText(m, "v")
	assert.Nil(t, cmd)

	// A source already loading is not requested twice.
	m, _ = press(m, tea.KeyTab)
	m.opts.Viewer.Loading().Begin("src-1")
	_, cmd = typeText(m, "v")
	assert.Nil(t, cmd)
}

// =============================================================================
// COPY
// =============================================================================

func TestCopyLastReply(t *testing.T) {
	var copied string
	opts := testOptions(loadFixtureStore(t))
	opts.Clipboard = func(s string) error {
		copied = s
		return nil
	}
	m := loaded(t, opts)

	m, _ = press(m, tea.KeyEscape)
	m, _ = typeText(m, "y")
	assert.Equal(t, "Revenue rose [1] while costs fell [2]. See also [7].", copied)
	assert.Contains(t, toastMessages(m), NoticeCopied)
}

func TestCopyLastReply_Failure(t *testing.T) {
	opts := testOptions(loadFixtureStore(t))
	opts.Clipboard = func(string) error { return errors.New("no clipboard") }
	m := loaded(t, opts)

	m, _ = press(m, tea.KeyEscape)
	m, _ = typeText(m, "y")
	assert.Contains(t, toastMessages(m), NoticeCopyFailed)
}

func TestToastsExpireOnTick(t *testing.T) {
	m := loaded(t, testOptions(loadFixtureStore(t)))
	m, _ = press(m, tea.KeyEscape)
	m, _ = typeText(m, "y")
	require.NotEmpty(t, m.Toasts())

	m, cmd := update(m, toastTick(time.Now().Add(time.Minute)))
	assert.Empty(t, m.Toasts())
	assert.Nil(t, cmd)
}

// =============================================================================
// ASKING
// =============================================================================

func TestAsk(t *testing.T) {
	m := loaded(t, testOptions(loadFixtureStore(t)))

	m, _ = typeText(m, "What changed?")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.Pending())
	msgs := m.Messages()
	assert.Equal(t, "What changed?", msgs[len(msgs)-1].Content)
	assert.Contains(t, m.View(), "Thinking...")

	m = settle(t, m, cmd)
	assert.False(t, m.Pending())
	msgs = m.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, session.OfflineReply, msgs[3].Content)
}

func TestAsk_WhilePending(t *testing.T) {
	m := loaded(t, testOptions(loadFixtureStore(t)))
	m.pending = true

	m, _ = typeText(m, "Another?")
	m, _ = press(m, tea.KeyEnter)
	assert.Contains(t, toastMessages(m), NoticeStillWaiting)
}

func TestSuggestions_EmptyChat(t *testing.T) {
	store := session.NewMemoryStore()
	m := loaded(t, testOptions(store))
	assert.Equal(t, "", m.ActiveSessionID())
	assert.Contains(t, m.View(), "Summarize the key points")

	m, _ = press(m, tea.KeyDown)
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	m = settle(t, m, cmd)

	require.NotEmpty(t, m.ActiveSessionID())
	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "What are the main takeaways?", msgs[0].Content)
	assert.Equal(t, session.OfflineReply, msgs[1].Content)
}

func TestSuggestions_DisabledWithoutSources(t *testing.T) {
	opts := testOptions(session.NewMemoryStore())
	opts.HasSources = false
	m := loaded(t, opts)

	assert.Contains(t, m.View(), "Select sources first")
	_, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func TestSidebar_DeleteRenameNew(t *testing.T) {
	store := loadFixtureStore(t)
	m := loaded(t, testOptions(store))
	ctx := context.Background()

	m, _ = press(m, tea.KeyCtrlB)
	require.True(t, m.SidebarVisible())
	assert.Equal(t, focusSidebar, m.focus)

	// The open chat is protected.
	m, cmd := typeText(m, "d")
	m = settle(t, m, cmd)
	assert.Contains(t, toastMessages(m), NoticeDeleteActive)

	m, _ = press(m, tea.KeyDown)
	m, cmd = typeText(m, "d")
	m = settle(t, m, cmd)
	metas, _ := store.ListSessions(ctx)
	require.Len(t, metas, 1)
	assert.Equal(t, "s1", metas[0].ID)

	m, _ = typeText(m, "r")
	require.True(t, m.sidebar.Renaming())
	m.sidebar.RenameInput().SetValue("Q3 review")
	m, cmd = press(m, tea.KeyEnter)
	m = settle(t, m, cmd)
	metas, _ = store.ListSessions(ctx)
	assert.Equal(t, "Q3 review", metas[0].Title)
	assert.Equal(t, "Q3 review", m.header.Title)

	m, cmd = typeText(m, "n")
	m = settle(t, m, cmd)
	assert.NotEqual(t, "s1", m.ActiveSessionID())
	assert.Empty(t, m.Messages())
	metas, _ = store.ListSessions(ctx)
	assert.Len(t, metas, 2)
}

func TestSidebar_OpenSession(t *testing.T) {
	m := loaded(t, testOptions(loadFixtureStore(t)))
	m, _ = press(m, tea.KeyCtrlB)
	m, _ = press(m, tea.KeyDown)
	m, cmd := press(m, tea.KeyEnter)
	m = settle(t, m, cmd)

	assert.Equal(t, "s2", m.ActiveSessionID())
	assert.Equal(t, "Who joined?", m.Messages()[0].Content)
	assert.Equal(t, focusInput, m.focus)
}

func TestSidebar_ContentSearch(t *testing.T) {
	store := loadFixtureStore(t)
	idx, err := search.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Rebuild(context.Background(), store))

	opts := testOptions(store)
	opts.Index = idx
	m := loaded(t, opts)

	m, _ = press(m, tea.KeyCtrlB)
	m, _ = typeText(m, "/")
	require.True(t, m.sidebar.Searching())
	m, cmd := typeText(m, "revenue")
	m = settle(t, m, cmd)

	visible := m.sidebar.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "s1", visible[0].ID)

	m, _ = press(m, tea.KeyEscape)
	assert.False(t, m.sidebar.Searching())
	assert.Len(t, m.sidebar.Visible(), 2)
}

func TestSidebar_ContentHitsFollowQuery(t *testing.T) {
	store := loadFixtureStore(t)
	idx, err := search.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Rebuild(context.Background(), store))

	opts := testOptions(store)
	opts.Index = idx
	m := loaded(t, opts)

	m, _ = press(m, tea.KeyCtrlB)
	m, _ = typeText(m, "/")
	m, cmd := typeText(m, "revenue")
	m = settle(t, m, cmd)
	require.Len(t, m.sidebar.Visible(), 1)

	// The new query's results have not arrived yet.
	m, _ = typeText(m, "zz")
	assert.Empty(t, m.sidebar.Visible())

	m, _ = update(m, SearchResultsMsg{Query: "revenue", SessionIDs: []string{"s1"}})
	assert.Empty(t, m.sidebar.Visible(), "results for an earlier query")
}

func TestResize(t *testing.T) {
	m := loaded(t, testOptions(loadFixtureStore(t)))
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 35, m.viewport.Height)

	m, _ = press(m, tea.KeyCtrlB)
	assert.Equal(t, 120-sidebarWidth, m.viewport.Width)
}

func skeletonTick() tea.Msg {
	return components.SkeletonTickMsg{Time: time.Now()}
}

func toastTick(at time.Time) tea.Msg {
	return components.ToastTickMsg{Time: at}
}
