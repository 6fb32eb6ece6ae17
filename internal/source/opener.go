// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package source

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/muesli/termenv"
)

// Opener presents a locator URL in a new viewing context.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// BrowserOpener hands the URL to the platform's default handler and does
// not wait for it to exit.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		// Empty quoted string is the window title.
		cmd = exec.Command("cmd", "/c", "start", `""`, url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// WriterOpener prints the URL as a terminal hyperlink instead of launching
// anything. Used when no desktop is available.
type WriterOpener struct {
	W     io.Writer
	Label string
}

func (o WriterOpener) Open(url string) error {
	label := o.Label
	if label == "" {
		label = url
	}
	_, err := fmt.Fprintf(o.W, "Source: %s\n", termenv.Hyperlink(url, label))
	return err
}
