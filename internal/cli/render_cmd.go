// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render_cmd.go - The "render" command: print one message with its
// citations as terminal text or HTML.
//
// Command: render FILE
//
// FILE holds a JSON message ({"role", "content", "citations"}) or plain
// markdown, which renders as an assistant message without citations.
// "-" reads stdin.
//
// Examples:
//   citeview render answer.json
//   citeview render answer.json --html > answer.html
//   citeview render draft.md --watch

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
	"github.com/jeranaias/citeview/internal/watch"
	"github.com/jeranaias/citeview/pkg/logger"
)

// RenderOptions configures one render.
type RenderOptions struct {
	HTML  bool
	Width int

	// Style is the glamour style for terminal output.
	Style string

	// CodeStyle is the chroma style for HTML code blocks.
	CodeStyle string
}

// HandleRender handles the "render" command.
func HandleRender(env *Env) error {
	p := NewArgParser(env.Args.Raw, "html", "watch")
	path := p.Subcommand()
	if path == "" {
		return ErrMissingArgument("FILE", "citeview render answer.json")
	}

	width := p.FlagIntOrDefault("width", env.Config.UI.WordWrap)
	if width <= 0 {
		width = GetTerminalWidth()
	}
	opts := RenderOptions{
		HTML:      p.BoolFlag("html"),
		Width:     width,
		Style:     GlamourStyle(env.Config.UI.Theme),
		CodeStyle: env.Config.UI.CodeStyle,
	}

	if !p.BoolFlag("watch") {
		return renderFile(env.Out, env.In, path, opts)
	}
	if path == "-" {
		return NewUsageError("--watch needs a file, not stdin")
	}
	return watchRender(env, path, opts)
}

func renderFile(w io.Writer, stdin io.Reader, path string, opts RenderOptions) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	msg, err := ParseMessage(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	out, err := RenderMessage(msg, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// watchRender renders path now and again after every change until
// interrupted.
func watchRender(env *Env, path string, opts RenderOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rerender := func(changed string) {
		if !opts.HTML {
			fmt.Fprintln(env.Out, RenderSeparator(opts.Width))
		}
		if err := renderFile(env.Out, nil, changed, opts); err != nil {
			logger.WithFields(logrus.Fields{"path": changed, "error": err.Error()}).Warn("RENDER_FAILED")
			DisplayError(env.Err, err, false)
		}
	}

	w, err := watch.New(watch.DefaultDebounce, rerender)
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	if err := renderFile(env.Out, nil, path, opts); err != nil {
		DisplayError(env.Err, err, false)
	}
	fmt.Fprintln(env.Err, DimStyle.Render("Watching "+path+" (Ctrl+C to stop)"))
	return w.Run(ctx)
}

// ParseMessage reads a JSON message, or treats anything else as the
// markdown content of an assistant message. Text is NFC-normalized.
func ParseMessage(data []byte) (*model.Message, error) {
	trimmed := bytes.TrimSpace(data)
	msg := &model.Message{Role: model.RoleAssistant}

	if bytes.HasPrefix(trimmed, []byte("{")) {
		if err := json.Unmarshal(trimmed, msg); err != nil {
			return nil, err
		}
		if msg.Role == "" {
			msg.Role = model.RoleAssistant
		}
	} else {
		msg.Content = string(data)
	}

	msg.Content = norm.NFC.String(msg.Content)
	for i := range msg.Citations {
		msg.Citations[i].Text = norm.NFC.String(msg.Citations[i].Text)
	}
	return msg, nil
}

// RenderMessage renders msg with its sources footer.
func RenderMessage(msg *model.Message, opts RenderOptions) (string, error) {
	if opts.HTML {
		out, err := render.NewHTML(opts.CodeStyle).RenderMessage(msg)
		if err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		return out, nil
	}

	term, err := render.NewTerminal(render.TerminalOptions{Width: opts.Width, Style: opts.Style})
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(term.RenderMessage(msg, render.NoFocus), "\n"))
	b.WriteString("\n")
	if msg.IsAssistant() {
		if footer := render.PlainFooter(msg.Citations); footer != "" {
			b.WriteString("\n" + footer + "\n")
		}
		if msg.HasCost() {
			b.WriteString(DimStyle.Render(msg.FormatCost()) + "\n")
		}
	}
	return b.String(), nil
}
