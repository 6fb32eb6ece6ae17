// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Collaborators shared by every command: config, logging, the
// session store and the source viewer.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/backend"
	"github.com/jeranaias/citeview/internal/config"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/pkg/logger"
)

// Env bundles what command handlers need. Tests build one directly.
type Env struct {
	Args   Args
	Config *config.Config

	// ConfigPath is the file the config came from, or the default
	// location when none exists yet.
	ConfigPath string

	Store     session.Store
	Responder session.Responder

	// Resolver answers source view requests. Nil when no backend is
	// reachable, which makes every source "not available".
	Resolver source.Resolver

	Opener    source.Opener
	Clipboard func(string) error

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewEnv loads the configuration and connects the store named by args:
// a JSON fixture when --fixture is given, the backend otherwise.
func NewEnv(args Args) (*Env, error) {
	cfg, path, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)

	env := &Env{
		Args:       args,
		Config:     cfg,
		ConfigPath: path,
		Opener:     DefaultOpener(os.Stdout),
		Clipboard:  clipboard.WriteAll,
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}

	if args.Fixture != "" {
		store, err := session.LoadFixture(args.Fixture)
		if err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		env.Store = store
		env.Responder = store
		// Sources stay viewable offline only when a backend was named.
		if args.BackendURL != "" {
			env.Resolver = backend.FromConfig(cfg.Backend)
		}
		return env, nil
	}

	client := backend.FromConfig(cfg.Backend)
	env.Store = client
	env.Responder = client
	env.Resolver = client
	return env, nil
}

func loadConfig(args Args) (*config.Config, string, error) {
	var cfg *config.Config
	var err error
	path := args.ConfigPath
	if path != "" {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			// `config init --config PATH` creates the file later.
			cfg = config.Default()
			cfg.ApplyEnvOverrides()
			cfg.SetDefaults()
			err = cfg.Validate()
		} else {
			cfg, err = config.LoadFromPath(path)
		}
	} else {
		path, _ = config.ConfigPath()
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}

	if args.BackendURL != "" {
		cfg.Backend.BaseURL = strings.TrimRight(args.BackendURL, "/")
		if err := cfg.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid --backend: %w", err)
		}
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, path, nil
}

// InitLogging configures pkg/logger from the [logging] section.
// Interactive commands always log to a file so output does not corrupt
// the screen. The returned closer releases the file, if any.
func (e *Env) InitLogging(interactive bool) (io.Closer, error) {
	path := e.Config.Logging.File
	if path == "" && interactive {
		var err error
		if path, err = config.DefaultLogPath(); err != nil {
			return nil, err
		}
	}
	if path == "" {
		return nopCloser{}, logger.Init(e.Config.Logging.Level, e.Config.Logging.Format, e.Err)
	}

	f, err := logger.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(e.Config.Logging.Level, e.Config.Logging.Format, f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Viewer returns a source viewer, or nil when nothing can resolve
// sources.
func (e *Env) Viewer() *source.Viewer {
	if e.Resolver == nil {
		return nil
	}
	return source.NewViewer(e.Resolver, e.Opener)
}

// HasSources reports whether questions can be grounded in sources,
// which enables the suggested questions.
func (e *Env) HasSources() bool {
	return e.Responder != nil && e.Args.Fixture == ""
}

// LoadSession returns a session with its messages.
func (e *Env) LoadSession(ctx context.Context, id string) (*model.Session, error) {
	metas, err := e.Store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, meta := range metas {
		if meta.ID != id {
			continue
		}
		msgs, err := e.Store.Messages(ctx, id)
		if err != nil {
			return nil, err
		}
		return &model.Session{SessionMeta: meta, Messages: msgs}, nil
	}
	return nil, &NotFoundError{Resource: "session", ID: id}
}

// DefaultOpener opens URLs in the browser when a desktop is available
// and prints them as terminal hyperlinks otherwise.
func DefaultOpener(w io.Writer) source.Opener {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return source.WriterOpener{W: w}
	}
	return source.BrowserOpener{}
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes every command except the TUI, which main owns.
func Run(cmd Command, env *Env) error {
	logger.WithFields(logrus.Fields{"command": cmd.String(), "fixture": env.Args.Fixture != ""}).Debug("COMMAND_START")

	var err error
	switch cmd {
	case CmdRender:
		err = HandleRender(env)
	case CmdServe:
		err = HandleServe(env)
	case CmdSessions:
		err = HandleSessions(env)
	case CmdExport:
		err = HandleExport(env)
	case CmdChat:
		err = HandleChat(env)
	case CmdConfig:
		err = HandleConfig(env)
	case CmdVersion:
		err = HandleVersion(env)
	case CmdHelp:
		err = HandleHelp(env)
	default:
		err = errors.New("command has no line-mode handler: " + cmd.String())
	}

	if err != nil {
		logger.WithFields(logrus.Fields{"command": cmd.String(), "error": err.Error()}).Debug("COMMAND_FAILED")
	}
	return err
}
