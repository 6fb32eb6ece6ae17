// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger is the process-wide structured logger.
//
// Call Init once at startup. Until then every helper is a no-op except
// Errorf and Fatalf, which fall back to stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.RWMutex
	log *logrus.Logger
)

// Init configures the global logger. level is one of debug, info, warn,
// error (default info); format is json or text (default text).
func Init(level, format string, out io.Writer) error {
	l := logrus.New()

	switch strings.ToLower(level) {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info", "":
		l.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	switch strings.ToLower(format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	mu.Lock()
	log = l
	mu.Unlock()
	return nil
}

// OpenFile opens (creating if needed) an append-only log file with owner-only
// permissions. The caller closes it.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Logger returns the configured logger, or a discarding one before Init.
func Logger() *logrus.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	return l
}

func current() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// WithFields starts a structured entry.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger().WithFields(fields)
}

func Debugf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Errorf(format, args...)
	} else {
		fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	}
}

func Fatalf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Fatalf(format, args...)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", args...)
		os.Exit(1)
	}
}
