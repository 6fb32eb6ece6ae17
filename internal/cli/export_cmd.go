// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - The "export" command.
//
// Examples:
//   citeview export 3f2a                 Markdown into [export] output_dir
//   citeview export 3f2a --format html --out ~/Desktop --open

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/citeview/internal/export"
)

// ExportResult is the --json shape of `citeview export`.
type ExportResult struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	Format    string `json:"format"`
}

// HandleExport handles the "export" command.
func HandleExport(env *Env) error {
	p := NewArgParser(env.Args.Raw, "open", "json")
	id := p.Subcommand()
	if id == "" {
		return ErrMissingArgument("ID", "citeview export ID --format html")
	}

	format, err := export.ParseFormat(p.Flag("format"))
	if err != nil {
		return &UsageError{Reason: err.Error(), Example: "--format md|html|json"}
	}

	opts := export.DefaultOptions()
	opts.OutputDir = p.FlagOrDefault("out", env.Config.Export.OutputDir)
	opts.OpenAfterExport = p.BoolFlag("open") || env.Config.Export.OpenAfterExport
	opts.Opener = env.Opener
	opts.CodeStyle = env.Config.UI.CodeStyle
	if theme := env.Config.UI.Theme; theme == "light" || theme == "dark" {
		opts.Theme = theme
	}

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	return OutputJSON(env.Out, env.Args.JSON, "export", func() (interface{}, error) {
		sess, err := env.LoadSession(ctx, id)
		if err != nil {
			return nil, err
		}
		path, err := export.ExportToFile(sess, exporter, opts)
		if err != nil {
			return nil, NewCommandError("export", string(format), "could not write file", err)
		}
		if !env.Args.JSON {
			fmt.Fprintf(env.Out, "%s %s\n", SuccessStyle.Render("Exported to"), path)
		}
		return ExportResult{SessionID: id, Path: path, Format: string(format)}, nil
	})
}
