// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - The "chat" command: a line-mode REPL over the session store.
//
// Command: chat [--session ID]
//
// Questions go to the responder; answers print with citation chips and a
// sources footer. Lines starting with ":" are commands:
//
//   :sources     List the sources of the last answer
//   :open N      Open source N of the last answer
//   :copy        Copy the last answer to the clipboard
//   :help        Show the commands
//   :quit        Leave (Ctrl+D also works)

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/config"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/internal/ui/styles"
	"github.com/jeranaias/citeview/internal/util"
	"github.com/jeranaias/citeview/pkg/logger"
)

const (
	chatPrompt      = "citeview> "
	chatHistoryFile = "chat_history"

	// chatTitleWidth bounds the title derived from the first question.
	chatTitleWidth = 48
)

// Messages printed by the REPL.
const (
	ChatNoAnswer     = "No answer yet"
	ChatNoSources    = "The last answer cites no sources"
	ChatCopied       = "Copied to clipboard"
	ChatCopyFailed   = "Failed to copy"
	ChatAskFailed    = "Failed to get a response"
	ChatNoResponder  = "Asking is not available"
	ChatUnknownCited = "No source numbered"
)

const chatHelp = `Commands:
  :sources   List the sources of the last answer
  :open N    Open source N of the last answer
  :copy      Copy the last answer to the clipboard
  :quit      Leave the chat`

// =============================================================================
// REPL STATE
// =============================================================================

// ChatREPL holds one line-mode conversation.
type ChatREPL struct {
	store     session.Store
	responder session.Responder
	viewer    *source.Viewer
	clipboard func(string) error
	renderer  *render.Terminal
	out       io.Writer

	sessionID string
	last      *model.Message
}

// NewChatREPL creates a REPL writing to env.Out.
func NewChatREPL(env *Env) (*ChatREPL, error) {
	width := env.Config.UI.WordWrap
	if width <= 0 {
		width = GetTerminalWidth()
	}
	renderer, err := render.NewTerminal(render.TerminalOptions{
		Width: width,
		Style: GlamourStyle(env.Config.UI.Theme),
	})
	if err != nil {
		return nil, err
	}
	return &ChatREPL{
		store:     env.Store,
		responder: env.Responder,
		viewer:    env.Viewer(),
		clipboard: env.Clipboard,
		renderer:  renderer,
		out:       env.Out,
	}, nil
}

// Resume continues an existing session and prints its history.
func (r *ChatREPL) Resume(ctx context.Context, id string) error {
	msgs, err := r.store.Messages(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return &NotFoundError{Resource: "session", ID: id}
		}
		return err
	}
	r.sessionID = id
	for i := range msgs {
		r.printMessage(&msgs[i])
		if msgs[i].IsAssistant() {
			r.last = &msgs[i]
		}
	}
	return nil
}

// SessionID returns the session questions go to, "" before the first.
func (r *ChatREPL) SessionID() string {
	return r.sessionID
}

// LastAnswer returns the most recent assistant reply, or nil.
func (r *ChatREPL) LastAnswer() *model.Message {
	return r.last
}

// Handle processes one input line. quit is true when the user asked to
// leave. Failures the user can recover from are printed, not returned.
func (r *ChatREPL) Handle(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ":") {
		r.ask(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	switch strings.ToLower(cmd) {
	case "quit", "q", "exit":
		return true
	case "help", "h", "?":
		fmt.Fprintln(r.out, chatHelp)
	case "sources", "s":
		r.listSources()
	case "open", "o":
		r.open(ctx, strings.TrimSpace(arg))
	case "copy", "c":
		r.copy()
	default:
		fmt.Fprintf(r.out, "%s :%s (try :help)\n", WarningStyle.Render("Unknown command"), cmd)
	}
	return false
}

// =============================================================================
// ACTIONS
// =============================================================================

func (r *ChatREPL) ask(ctx context.Context, question string) {
	if r.responder == nil {
		fmt.Fprintln(r.out, styles.RenderError(ChatNoResponder))
		return
	}

	if r.sessionID == "" {
		title := util.TruncateWidth(util.FirstLine(question), chatTitleWidth)
		meta, err := r.store.CreateSession(ctx, title)
		if err != nil {
			r.fail(ChatAskFailed, err)
			return
		}
		r.sessionID = meta.ID
	}

	fmt.Fprintln(r.out, styles.RenderInfo("Thinking..."))
	reply, err := r.responder.Ask(ctx, r.sessionID, question)
	if err != nil {
		r.fail(ChatAskFailed, err)
		return
	}
	r.last = reply
	r.printMessage(reply)
}

func (r *ChatREPL) listSources() {
	if r.last == nil {
		fmt.Fprintln(r.out, DimStyle.Render(ChatNoAnswer))
		return
	}
	entries := render.Footer(r.last.Citations)
	if entries == nil {
		fmt.Fprintln(r.out, DimStyle.Render(ChatNoSources))
		return
	}
	fmt.Fprintln(r.out, render.FooterHeading)
	for _, e := range entries {
		hint := ""
		if e.Citation.Viewable() {
			hint = DimStyle.Render(fmt.Sprintf("  (:open %d)", e.Number))
		}
		fmt.Fprintf(r.out, "  %s%s\n", e.String(), hint)
		if e.Citation.Text != "" {
			fmt.Fprintf(r.out, "      %q\n", util.TruncateWidth(e.Citation.Text, 72))
		}
		if e.Citation.URL != "" {
			fmt.Fprintf(r.out, "      %s\n", styles.RenderLink(e.Citation.URL))
		}
	}
}

func (r *ChatREPL) open(ctx context.Context, arg string) {
	if r.last == nil {
		fmt.Fprintln(r.out, DimStyle.Render(ChatNoAnswer))
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintln(r.out, WarningStyle.Render("Usage: :open N"))
		return
	}
	c := citation.Resolve(n, r.last.Citations)
	if c == nil {
		fmt.Fprintln(r.out, styles.RenderWarning(fmt.Sprintf("%s %d", ChatUnknownCited, n)))
		return
	}
	if !c.Viewable() || r.viewer == nil {
		fmt.Fprintln(r.out, styles.RenderWarning(source.NoticeNotAvailable))
		return
	}

	fmt.Fprintln(r.out, styles.RenderInfo("Opening..."))
	res := r.viewer.Open(ctx, *c)
	switch res.Status {
	case source.StatusOpened:
		fmt.Fprintln(r.out, styles.RenderSuccess(fmt.Sprintf("Opened [%d] %s", n, c.DisplayName())))
	case source.StatusNotAvailable:
		fmt.Fprintln(r.out, styles.RenderWarning(res.Notice))
	default:
		fmt.Fprintln(r.out, styles.RenderError(res.Notice))
	}
}

func (r *ChatREPL) copy() {
	if r.last == nil || r.last.Content == "" {
		fmt.Fprintln(r.out, DimStyle.Render(ChatNoAnswer))
		return
	}
	if err := r.clipboard(r.last.Content); err != nil {
		r.fail(ChatCopyFailed, err)
		return
	}
	fmt.Fprintln(r.out, styles.RenderSuccess(ChatCopied))
}

func (r *ChatREPL) fail(notice string, err error) {
	logger.WithFields(logrus.Fields{"session_id": r.sessionID, "error": err.Error()}).Warn("CHAT_ACTION_FAILED")
	fmt.Fprintln(r.out, styles.RenderError(fmt.Sprintf("%s: %v", notice, err)))
}

func (r *ChatREPL) printMessage(msg *model.Message) {
	label := PromptStyle.Render(msg.Role.DisplayName())
	fmt.Fprintln(r.out, label)
	fmt.Fprintln(r.out, strings.TrimRight(r.renderer.RenderMessage(msg, render.NoFocus), "\n"))
	if !msg.IsAssistant() {
		fmt.Fprintln(r.out)
		return
	}
	if footer := render.PlainFooter(msg.Citations); footer != "" {
		fmt.Fprintln(r.out, DimStyle.Render(footer))
	}
	if msg.HasCost() {
		fmt.Fprintln(r.out, DimStyle.Render(msg.FormatCost()))
	}
	fmt.Fprintln(r.out)
}

// =============================================================================
// COMMAND HANDLER
// =============================================================================

// HandleChat runs the REPL with line editing and persistent history.
func HandleChat(env *Env) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}
	p := NewArgParser(env.Args.Raw)

	repl, err := NewChatREPL(env)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if id := p.Flag("session"); id != "" {
		if err := repl.Resume(ctx, id); err != nil {
			return err
		}
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyPath = filepath.Join(dir, chatHistoryFile)
		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer saveHistory(line, historyPath)

	fmt.Fprintln(env.Out, TitleStyle.Render("citeview chat")+DimStyle.Render("  :help for commands, Ctrl+D to leave"))
	for {
		input, err := line.Prompt(chatPrompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(env.Out)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if repl.Handle(ctx, input) {
			return nil
		}
	}
}

func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		logger.WithFields(logrus.Fields{"error": err.Error()}).Debug("CHAT_HISTORY_SAVE_FAILED")
	}
}
