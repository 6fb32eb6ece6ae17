// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citeview/internal/backend"
	"github.com/jeranaias/citeview/internal/config"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
)

func TestMain(m *testing.M) {
	ForceColorsEnabled(false)
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

// =============================================================================
// TEST HELPERS
// =============================================================================

const fixtureJSON = `{
  "sessions": [
    {
      "id": "s1",
      "title": "Quarterly review",
      "created_at": "2025-03-01T09:00:00Z",
      "updated_at": "2025-03-02T09:00:00Z",
      "messages": [
        {"id": "m1", "role": "user", "content": "How did the quarter go?"},
        {"id": "m2", "role": "assistant", "content": "Revenue rose [1] while costs fell [2]. See also [7].",
         "cost_usd": 0.0021,
         "citations": [
           {"number": 1, "source_id": "src-1", "source_name": "Annual report", "text": "Revenue grew 12%", "file_path": "report.pdf"},
           {"number": 2, "source_name": "Board minutes", "file_path": "minutes.pdf"},
           {"number": 3, "source_id": "src-3", "source_name": "Press release"}
         ]}
      ]
    },
    {
      "id": "s2",
      "title": "Hiring notes",
      "created_at": "2025-02-01T09:00:00Z",
      "updated_at": "2025-02-01T09:30:00Z",
      "messages": [
        {"id": "m3", "role": "user", "content": "Who joined?"},
        {"id": "m4", "role": "assistant", "content": "Two hires [1]."}
      ]
    }
  ]
}`

type fakeResolver struct {
	mu    sync.Mutex
	calls []string
	url   string
	err   error
}

func (r *fakeResolver) View(ctx context.Context, sourceID string) (*source.Locator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sourceID)
	if r.err != nil {
		return nil, r.err
	}
	return &source.Locator{URL: r.url}, nil
}

type testEnv struct {
	*Env
	out     *bytes.Buffer
	opened  []string
	copied  []string
	copyErr error
}

func newTestEnv(t *testing.T, raw ...string) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0600))
	store, err := session.LoadFixture(path)
	require.NoError(t, err)

	te := &testEnv{out: &bytes.Buffer{}}
	cfg := config.Default()
	cfg.UI.WordWrap = 80
	te.Env = &Env{
		Args:       Args{Fixture: path, Raw: raw},
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Store:      store,
		Responder:  store,
		Opener: source.OpenerFunc(func(url string) error {
			te.opened = append(te.opened, url)
			return nil
		}),
		Clipboard: func(s string) error {
			if te.copyErr != nil {
				return te.copyErr
			}
			te.copied = append(te.copied, s)
			return nil
		},
		In:  strings.NewReader(""),
		Out: te.out,
		Err: &bytes.Buffer{},
	}
	return te
}

func (te *testEnv) withRaw(raw ...string) *testEnv {
	te.Args.Raw = raw
	te.out.Reset()
	return te
}

func decodeResponse(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		boolNames []string
		validate  func(*testing.T, *ArgParser)
	}{
		{
			name: "subcommand with value flag",
			args: []string{"search", "revenue", "--limit", "5"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "search", p.Subcommand())
				assert.Equal(t, "revenue", p.Positional(1))
				assert.Equal(t, 5, p.FlagIntOrDefault("limit", 20))
			},
		},
		{
			name: "flag with equals",
			args: []string{"export", "--format=html"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "html", p.Flag("format"))
			},
		},
		{
			name: "equals true is boolean",
			args: []string{"--open=true"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("open"))
				assert.Empty(t, p.Flag("open"))
			},
		},
		{
			name:      "declared bool flag does not swallow the next word",
			args:      []string{"--html", "answer.json"},
			boolNames: []string{"html"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("html"))
				assert.Equal(t, "answer.json", p.Subcommand())
			},
		},
		{
			name: "undeclared flag takes the next word",
			args: []string{"--out", "dir", "id"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "dir", p.Flag("out"))
				assert.Equal(t, "id", p.Subcommand())
			},
		},
		{
			name: "lone dash is positional",
			args: []string{"-", "--width", "60"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "-", p.Subcommand())
				assert.Equal(t, "60", p.Flag("width"))
			},
		},
		{
			name: "malformed int falls back",
			args: []string{"--limit", "many"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, 20, p.FlagIntOrDefault("limit", 20))
				_, err := p.FlagInt("missing")
				assert.Error(t, err)
			},
		},
		{
			name: "trailing flag is boolean",
			args: []string{"delete", "s1", "--confirm"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("confirm"))
				assert.True(t, p.HasFlag("--confirm"))
				assert.Equal(t, 2, p.PositionalCount())
			},
		},
		{
			name: "empty",
			args: nil,
			validate: func(t *testing.T, p *ArgParser) {
				assert.Empty(t, p.Subcommand())
				assert.Empty(t, p.Positional(3))
				assert.Empty(t, p.PositionalFrom(1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, NewArgParser(tt.args, tt.boolNames...))
		})
	}
}

func TestJoinPositionalArgs(t *testing.T) {
	p := NewArgParser([]string{"rename", "s1", "Board", "prep", "--json"}, "json")
	assert.Equal(t, "Board prep", JoinPositionalArgs(p, 2))
	assert.Equal(t, "", JoinPositionalArgs(p, 9))
}

// =============================================================================
// COMMAND PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		argv  []string
		want  Command
		check func(*testing.T, Args)
	}{
		{argv: nil, want: CmdTUI},
		{argv: []string{"render", "a.json"}, want: CmdRender, check: func(t *testing.T, a Args) {
			assert.Equal(t, []string{"a.json"}, a.Raw)
		}},
		{argv: []string{"server"}, want: CmdServe},
		{argv: []string{"session", "list"}, want: CmdSessions},
		{argv: []string{"EXPORT", "s1"}, want: CmdExport},
		{argv: []string{"chat"}, want: CmdChat},
		{argv: []string{"config", "path"}, want: CmdConfig},
		{argv: []string{"--version"}, want: CmdVersion},
		{argv: []string{"-h"}, want: CmdHelp},
		{argv: []string{"bogus"}, want: CmdHelp, check: func(t *testing.T, a Args) {
			assert.Equal(t, "bogus", a.Unknown)
		}},
		{argv: []string{"--json", "sessions", "--fixture", "fx.json", "-v"}, want: CmdSessions, check: func(t *testing.T, a Args) {
			assert.True(t, a.JSON)
			assert.True(t, a.Verbose)
			assert.Equal(t, "fx.json", a.Fixture)
			assert.Empty(t, a.Raw)
		}},
		{argv: []string{"--config=/tmp/c.toml", "--backend=http://b", "tui"}, want: CmdTUI, check: func(t *testing.T, a Args) {
			assert.Equal(t, "/tmp/c.toml", a.ConfigPath)
			assert.Equal(t, "http://b", a.BackendURL)
		}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(append([]string{"argv"}, tt.argv...), "_"), func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.want, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "sessions", CmdSessions.String())
	assert.Equal(t, "unknown", Command(99).String())
}

func TestHandleHelp_UnknownCommand(t *testing.T) {
	te := newTestEnv(t)
	te.Args.Unknown = "bogus"
	err := HandleHelp(te.Env)
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Contains(t, te.out.String(), "citeview render FILE")
}

func TestHandleVersion_JSON(t *testing.T) {
	te := newTestEnv(t)
	te.Args.JSON = true
	require.NoError(t, HandleVersion(te.Env))

	resp := decodeResponse(t, te.out.Bytes())
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, Version, data["version"])
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"usage", ErrMissingArgument("ID", ""), ExitUsageError},
		{"config", config.ValidateErrors{{Field: "server.port", Message: "out of range"}}, ExitConfigError},
		{"single config", fmt.Errorf("load: %w", config.ValidationError{Field: "ui.theme", Message: "bad"}), ExitConfigError},
		{"not found", &NotFoundError{Resource: "session", ID: "x"}, ExitNotFoundError},
		{"store not found", fmt.Errorf("wrap: %w", session.ErrSessionNotFound), ExitNotFoundError},
		{"source not found", source.ErrNotFound, ExitNotFoundError},
		{"no token", source.ErrNoToken, ExitAuthError},
		{"auth failed", fmt.Errorf("view: %w", source.ErrAuthFailed), ExitAuthError},
		{"api 401", &backend.APIError{Status: 401}, ExitAuthError},
		{"api 503", &backend.APIError{Status: 503}, ExitNetworkError},
		{"api 500", &backend.APIError{Status: 500}, ExitGeneralError},
		{"gateway timeout", &source.StatusError{Status: 504}, ExitTimeoutError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"command wraps cause", NewCommandError("sessions", "delete", "failed", session.ErrSessionNotFound), ExitNotFoundError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var text bytes.Buffer
	DisplayError(&text, &UsageError{Reason: "missing ID", Example: "citeview export ID"}, false)
	assert.Contains(t, text.String(), "missing ID")
	assert.Contains(t, text.String(), "Example: citeview export ID")

	var js bytes.Buffer
	DisplayError(&js, &NotFoundError{Resource: "session", ID: "s9"}, true)
	resp := decodeResponse(t, js.Bytes())
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "not_found_error", resp["error_type"])
	assert.Equal(t, "s9", resp["id"])
	assert.Equal(t, float64(ExitNotFoundError), resp["exit_code"])

	var none bytes.Buffer
	DisplayError(&none, nil, true)
	assert.Zero(t, none.Len())
}

func TestOutputJSON_Error(t *testing.T) {
	var buf bytes.Buffer
	err := OutputJSON(&buf, true, "sessions list", func() (interface{}, error) {
		return nil, errors.New("store offline")
	})
	require.Error(t, err)
	resp := decodeResponse(t, buf.Bytes())
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "store offline", resp["error"])
	assert.Equal(t, "sessions list", resp["command"])
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestHandleSessions_List(t *testing.T) {
	te := newTestEnv(t, "list")
	require.NoError(t, HandleSessions(te.Env))

	out := te.out.String()
	assert.Contains(t, out, "Chats (2)")
	assert.Contains(t, out, "Quarterly review")
	assert.Contains(t, out, "2 msgs")
	assert.Less(t, strings.Index(out, "Quarterly review"), strings.Index(out, "Hiring notes"))
}

func TestHandleSessions_ListJSON(t *testing.T) {
	te := newTestEnv(t)
	te.Args.JSON = true
	require.NoError(t, HandleSessions(te.Env))

	var resp struct {
		Success bool                `json:"success"`
		Data    []model.SessionMeta `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "s1", resp.Data[0].ID)
}

func TestHandleSessions_ListEmpty(t *testing.T) {
	te := newTestEnv(t)
	te.Store = session.NewMemoryStore()
	require.NoError(t, HandleSessions(te.Env))
	assert.Contains(t, te.out.String(), "No chats yet")
}

func TestHandleSessions_Search(t *testing.T) {
	te := newTestEnv(t, "search", "hires")
	require.NoError(t, HandleSessions(te.Env))
	assert.Contains(t, te.out.String(), "Hiring notes")
	assert.NotContains(t, te.out.String(), "Quarterly review")

	te.withRaw("search", "zeppelin")
	require.NoError(t, HandleSessions(te.Env))
	assert.Contains(t, te.out.String(), "No matches for zeppelin")

	te.withRaw("search")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleSessions(te.Env)))
}

func TestHandleSessions_Rename(t *testing.T) {
	te := newTestEnv(t, "rename", "s2", "Team", "growth")
	require.NoError(t, HandleSessions(te.Env))
	assert.Contains(t, te.out.String(), "s2 -> Team growth")

	metas, err := te.Store.ListSessions(context.Background())
	require.NoError(t, err)
	titles := map[string]string{}
	for _, m := range metas {
		titles[m.ID] = m.Title
	}
	assert.Equal(t, "Team growth", titles["s2"])

	te.withRaw("rename", "s2", "   ")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleSessions(te.Env)))

	te.withRaw("rename", "missing", "Title")
	assert.Equal(t, ExitNotFoundError, GetExitCode(HandleSessions(te.Env)))
}

func TestHandleSessions_Delete(t *testing.T) {
	te := newTestEnv(t, "delete", "s2")
	err := HandleSessions(te.Env)
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	te.withRaw("delete", "s2", "--confirm")
	require.NoError(t, HandleSessions(te.Env))
	metas, _ := te.Store.ListSessions(context.Background())
	assert.Len(t, metas, 1)

	te.withRaw("rm", "s2", "--confirm")
	assert.Equal(t, ExitNotFoundError, GetExitCode(HandleSessions(te.Env)))
}

func TestHandleSessions_UnknownSubcommand(t *testing.T) {
	te := newTestEnv(t, "frobnicate")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleSessions(te.Env)))
}

// =============================================================================
// EXPORT
// =============================================================================

func TestHandleExport_HTML(t *testing.T) {
	dir := t.TempDir()
	te := newTestEnv(t, "s1", "--format", "html", "--out", dir)
	require.NoError(t, HandleExport(te.Env))
	assert.Contains(t, te.out.String(), "Exported to")

	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Annual report")
	assert.Empty(t, te.opened)
}

func TestHandleExport_JSONModeAndOpen(t *testing.T) {
	dir := t.TempDir()
	te := newTestEnv(t, "s2", "--out", dir, "--open")
	te.Args.JSON = true
	require.NoError(t, HandleExport(te.Env))

	var resp struct {
		Data ExportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(te.out.Bytes(), &resp))
	assert.Equal(t, "s2", resp.Data.SessionID)
	assert.Equal(t, "md", resp.Data.Format)
	assert.FileExists(t, resp.Data.Path)
	assert.Equal(t, []string{resp.Data.Path}, te.opened)
}

func TestHandleExport_Errors(t *testing.T) {
	te := newTestEnv(t)
	assert.Equal(t, ExitUsageError, GetExitCode(HandleExport(te.Env)))

	te.withRaw("s1", "--format", "pdf")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleExport(te.Env)))

	te.withRaw("nope", "--out", t.TempDir())
	assert.Equal(t, ExitNotFoundError, GetExitCode(HandleExport(te.Env)))
}

// =============================================================================
// RENDER
// =============================================================================

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte("Plain **markdown** [1]"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, "Plain **markdown** [1]", msg.Content)

	msg, err = ParseMessage([]byte(`  {"content": "Résumé [1]", "citations": [{"number": 1, "text": "café"}]}`))
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, "Résumé [1]", msg.Content)
	assert.Equal(t, "café", msg.Citations[0].Text)

	_, err = ParseMessage([]byte(`{"content": `))
	assert.Error(t, err)
}

func TestRenderMessage(t *testing.T) {
	cost := 0.0021
	msg := &model.Message{
		Role:    model.RoleAssistant,
		Content: "Revenue rose [1].",
		Citations: []model.Citation{
			{Number: 1, SourceID: "src-1", SourceName: "Annual report", FilePath: "report.pdf"},
		},
		CostUSD: &cost,
	}

	out, err := RenderMessage(msg, RenderOptions{Width: 80, Style: "notty"})
	require.NoError(t, err)
	assert.Contains(t, out, "Revenue rose")
	assert.Contains(t, out, "Sources:\n[1] Annual report")
	assert.Contains(t, out, "$0.0021")

	html, err := RenderMessage(msg, RenderOptions{HTML: true, CodeStyle: "monokai"})
	require.NoError(t, err)
	assert.Contains(t, html, "Annual report")
	assert.NotContains(t, html, "\x1b[")
}

func TestHandleRender_Stdin(t *testing.T) {
	te := newTestEnv(t, "-", "--width", "60")
	te.In = strings.NewReader(`{"content": "Two hires [1].", "citations": [{"number": 1, "source_name": "HR log"}]}`)
	require.NoError(t, HandleRender(te.Env))
	assert.Contains(t, te.out.String(), "[1] HR log")

	te.withRaw("-", "--watch")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleRender(te.Env)))

	te.withRaw()
	assert.Equal(t, ExitUsageError, GetExitCode(HandleRender(te.Env)))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestHandleConfig(t *testing.T) {
	te := newTestEnv(t, "path")
	require.NoError(t, HandleConfig(te.Env))
	assert.Equal(t, te.ConfigPath+"\n", te.out.String())

	te.withRaw("init")
	require.NoError(t, HandleConfig(te.Env))
	assert.FileExists(t, te.ConfigPath)

	te.withRaw("init")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfig(te.Env)))

	te.withRaw("init", "--force")
	require.NoError(t, HandleConfig(te.Env))

	loaded, err := config.LoadFromPath(te.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Port, loaded.Server.Port)
}

func TestHandleConfig_ShowRedactsSecrets(t *testing.T) {
	te := newTestEnv(t, "show")
	te.Args.JSON = true
	te.Config.Backend.Token = "sk-secret"
	require.NoError(t, HandleConfig(te.Env))
	assert.NotContains(t, te.out.String(), "sk-secret")
	assert.Contains(t, te.out.String(), "[REDACTED]")
	assert.Equal(t, "sk-secret", te.Config.Backend.Token)
}

// =============================================================================
// CHAT REPL
// =============================================================================

func newREPL(t *testing.T, te *testEnv) *ChatREPL {
	t.Helper()
	repl, err := NewChatREPL(te.Env)
	require.NoError(t, err)
	return repl
}

func TestChatREPL_AskCreatesSession(t *testing.T) {
	te := newTestEnv(t)
	repl := newREPL(t, te)

	assert.False(t, repl.Handle(context.Background(), "   "))
	assert.Empty(t, repl.SessionID())

	assert.False(t, repl.Handle(context.Background(), "What changed this quarter?"))
	require.NotEmpty(t, repl.SessionID())
	require.NotNil(t, repl.LastAnswer())
	assert.Equal(t, session.OfflineReply, repl.LastAnswer().Content)

	msgs, err := te.Store.Messages(context.Background(), repl.SessionID())
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	metas, _ := te.Store.ListSessions(context.Background())
	assert.Equal(t, "What changed this quarter?", metas[0].Title)

	id := repl.SessionID()
	repl.Handle(context.Background(), "And next quarter?")
	assert.Equal(t, id, repl.SessionID())
}

func TestChatREPL_AskFailureKeepsRunning(t *testing.T) {
	te := newTestEnv(t)
	te.Responder = failingResponder{}
	repl := newREPL(t, te)

	assert.False(t, repl.Handle(context.Background(), "hello"))
	assert.Contains(t, te.out.String(), ChatAskFailed)
	assert.Nil(t, repl.LastAnswer())
}

type failingResponder struct{}

func (failingResponder) Ask(ctx context.Context, sessionID, question string) (*model.Message, error) {
	return nil, errors.New("backend unreachable")
}

func TestChatREPL_Resume(t *testing.T) {
	te := newTestEnv(t)
	repl := newREPL(t, te)
	require.NoError(t, repl.Resume(context.Background(), "s1"))

	assert.Equal(t, "s1", repl.SessionID())
	require.NotNil(t, repl.LastAnswer())
	assert.Equal(t, "m2", repl.LastAnswer().ID)
	assert.Contains(t, te.out.String(), "[1] Annual report")
	assert.Contains(t, te.out.String(), "$0.0021")

	err := newREPL(t, te).Resume(context.Background(), "missing")
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestChatREPL_Sources(t *testing.T) {
	te := newTestEnv(t)
	repl := newREPL(t, te)
	repl.Handle(context.Background(), ":sources")
	assert.Contains(t, te.out.String(), ChatNoAnswer)

	require.NoError(t, repl.Resume(context.Background(), "s1"))
	te.out.Reset()
	repl.Handle(context.Background(), ":sources")

	out := te.out.String()
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Annual report")
	assert.Contains(t, out, "(:open 1)")
	assert.Contains(t, out, `"Revenue grew 12%"`)
	assert.Contains(t, out, "[3] Press release")
	assert.NotContains(t, out, "(:open 3)")
}

func TestChatREPL_Open(t *testing.T) {
	te := newTestEnv(t)
	resolver := &fakeResolver{url: "https://docs.example.com/view/src-1"}
	te.Resolver = resolver
	repl := newREPL(t, te)
	require.NoError(t, repl.Resume(context.Background(), "s1"))

	tests := []struct {
		line string
		want string
	}{
		{":open 1", "[1] Annual report"},
		{":open 2", source.NoticeNotAvailable},
		{":open 3", source.NoticeNotAvailable},
		{":open 7", ChatUnknownCited + " 7"},
		{":open one", "Usage: :open N"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			te.out.Reset()
			assert.False(t, repl.Handle(context.Background(), tt.line))
			assert.Contains(t, te.out.String(), tt.want)
		})
	}

	assert.Equal(t, []string{"src-1"}, resolver.calls)
	assert.Equal(t, []string{"https://docs.example.com/view/src-1"}, te.opened)
}

func TestChatREPL_OpenFailure(t *testing.T) {
	te := newTestEnv(t)
	te.Resolver = &fakeResolver{err: &source.StatusError{Status: 500, Message: "boom"}}
	repl := newREPL(t, te)
	require.NoError(t, repl.Resume(context.Background(), "s1"))

	te.out.Reset()
	repl.Handle(context.Background(), ":open 1")
	assert.Contains(t, te.out.String(), source.NoticeFailed)
	assert.Empty(t, te.opened)
}

func TestChatREPL_OpenWithoutResolver(t *testing.T) {
	te := newTestEnv(t)
	repl := newREPL(t, te)
	require.NoError(t, repl.Resume(context.Background(), "s1"))

	te.out.Reset()
	repl.Handle(context.Background(), ":open 1")
	assert.Contains(t, te.out.String(), source.NoticeNotAvailable)
	assert.Empty(t, te.opened)
}

func TestChatREPL_Copy(t *testing.T) {
	te := newTestEnv(t)
	repl := newREPL(t, te)
	repl.Handle(context.Background(), ":copy")
	assert.Contains(t, te.out.String(), ChatNoAnswer)

	require.NoError(t, repl.Resume(context.Background(), "s1"))
	te.out.Reset()
	repl.Handle(context.Background(), ":copy")
	assert.Contains(t, te.out.String(), ChatCopied)
	assert.Equal(t, []string{"Revenue rose [1] while costs fell [2]. See also [7]."}, te.copied)

	te.copyErr = errors.New("no clipboard")
	te.out.Reset()
	repl.Handle(context.Background(), ":copy")
	assert.Contains(t, te.out.String(), ChatCopyFailed)
}

func TestChatREPL_Commands(t *testing.T) {
	te := newTestEnv(t)
	repl := newREPL(t, te)

	assert.False(t, repl.Handle(context.Background(), ":help"))
	assert.Contains(t, te.out.String(), ":open N")

	te.out.Reset()
	assert.False(t, repl.Handle(context.Background(), ":frob"))
	assert.Contains(t, te.out.String(), "try :help")

	for _, q := range []string{":quit", ":q", ":EXIT"} {
		assert.True(t, repl.Handle(context.Background(), q), q)
	}
}

// =============================================================================
// ENV
// =============================================================================

func TestEnv_ViewerAndSources(t *testing.T) {
	te := newTestEnv(t)
	assert.Nil(t, te.Viewer())
	assert.False(t, te.HasSources())

	te.Resolver = &fakeResolver{url: "https://x"}
	assert.NotNil(t, te.Viewer())

	te.Args.Fixture = ""
	assert.True(t, te.HasSources())
}

func TestEnv_LoadSession(t *testing.T) {
	te := newTestEnv(t)
	sess, err := te.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly review", sess.Title)
	assert.Len(t, sess.Messages, 2)

	_, err = te.LoadSession(context.Background(), "nope")
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestNewEnv_Fixture(t *testing.T) {
	t.Setenv("CITEVIEW_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0600))

	env, err := NewEnv(Args{Fixture: path})
	require.NoError(t, err)
	assert.Nil(t, env.Resolver)
	metas, err := env.Store.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	env, err = NewEnv(Args{Fixture: path, BackendURL: "http://127.0.0.1:9/"})
	require.NoError(t, err)
	assert.NotNil(t, env.Resolver)
	assert.Equal(t, "http://127.0.0.1:9", env.Config.Backend.BaseURL)

	_, err = NewEnv(Args{Fixture: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}
