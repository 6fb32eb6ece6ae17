// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - The "serve" command: the render service and source
// view gateway, plus a config watcher.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/citeview/internal/backend"
	"github.com/jeranaias/citeview/internal/config"
	"github.com/jeranaias/citeview/internal/server"
	"github.com/jeranaias/citeview/pkg/logger"
)

// HandleServe runs the server until SIGINT or SIGTERM.
func HandleServe(env *Env) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, env)
}

// Serve runs the server and, when the config file exists, a watcher
// that applies logging changes live. Server settings need a restart.
func Serve(ctx context.Context, env *Env) error {
	cfg := env.Config
	srv := server.New(cfg.Server, server.Options{
		Version:       Version,
		BackendURL:    cfg.Backend.BaseURL,
		BackendTokens: backend.Tokens(cfg.Backend),
		CodeStyle:     cfg.UI.CodeStyle,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if _, err := os.Stat(env.ConfigPath); err == nil {
		w, err := config.Watch(env.ConfigPath, func(next *config.Config) {
			if err := logger.Init(next.Logging.Level, next.Logging.Format, env.Err); err != nil {
				logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("LOGGER_RELOAD_FAILED")
			}
			if next.Server.Addr() != cfg.Server.Addr() || next.Server.AuthToken != cfg.Server.AuthToken {
				logger.WithFields(logrus.Fields{"path": env.ConfigPath}).Warn("SERVER_RESTART_REQUIRED")
			}
		})
		if err != nil {
			logger.WithFields(logrus.Fields{"path": env.ConfigPath, "error": err.Error()}).Warn("CONFIG_WATCH_FAILED")
		} else {
			g.Go(func() error {
				return w.Run(gctx)
			})
		}
	}

	if !env.Args.JSON {
		fmt.Fprintf(env.Err, "%s http://%s\n", SuccessStyle.Render("Listening on"), srv.Addr())
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
