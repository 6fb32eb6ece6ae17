// citeview - read chat answers that cite their sources, in the terminal
// or over HTTP.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/cli"
	"github.com/jeranaias/citeview/internal/search"
	"github.com/jeranaias/citeview/internal/ui/chat"
	"github.com/jeranaias/citeview/internal/ui/styles"
	"github.com/jeranaias/citeview/pkg/logger"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := cli.Parse()

	env, err := cli.NewEnv(args)
	if err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		return cli.GetExitCode(err)
	}

	interactive := cmd == cli.CmdTUI || cmd == cli.CmdChat
	closer, err := env.InitLogging(interactive)
	if err != nil {
		cli.DisplayError(env.Err, err, args.JSON)
		return cli.ExitConfigError
	}
	defer closer.Close()

	if cmd == cli.CmdTUI {
		err = runTUI(env)
	} else {
		err = cli.Run(cmd, env)
	}
	if err != nil {
		cli.DisplayError(env.Err, err, args.JSON)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}

// runTUI starts the full-screen chat.
func runTUI(env *cli.Env) error {
	if err := cli.RequiresTTY("the chat TUI"); err != nil {
		return err
	}

	idx, err := search.New()
	if err != nil {
		// Title filtering still works without the content index.
		logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("SEARCH_INDEX_UNAVAILABLE")
		idx = nil
	} else {
		defer idx.Close()
	}

	m := chat.New(chat.Options{
		Store:        env.Store,
		Responder:    env.Responder,
		Viewer:       env.Viewer(),
		Index:        idx,
		Theme:        newTheme(env.Config.UI.Theme),
		GlamourStyle: glamourStyle(env.Config.UI.Theme),
		ShowCost:     env.Config.UI.ShowCost,
		HasSources:   env.HasSources(),
		Clipboard:    env.Clipboard,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Mouse wheel scrolls the conversation
	)
	logger.WithFields(logrus.Fields{"fixture": env.Args.Fixture != "", "backend": env.Config.Backend.BaseURL}).Info("TUI_START")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running citeview: %w", err)
	}
	return nil
}

func newTheme(name string) *styles.Theme {
	switch name {
	case "dark":
		return styles.NewThemeWithProfile(termenv.ColorProfile(), true)
	case "light":
		return styles.NewThemeWithProfile(termenv.ColorProfile(), false)
	default:
		return styles.NewTheme()
	}
}

// glamourStyle maps the configured theme to a markdown style; "" lets
// the chat detect the terminal background.
func glamourStyle(name string) string {
	switch name {
	case "dark", "light":
		return name
	default:
		return ""
	}
}
