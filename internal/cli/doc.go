// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the line-mode commands
// for citeview.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Global flags plus the raw arguments after the command name
//   - ArgParser: Subcommand, flag and positional parsing for handlers
//   - Env: Config, store, responder and source resolver shared by handlers
//   - ChatREPL: The line-mode chat behind "citeview chat"
//
// # Usage
//
//	cmd, args := cli.Parse()
//	env, err := cli.NewEnv(args)
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	if err := cli.Run(cmd, env); err != nil {
//	    cli.DisplayError(env.Err, err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// The TUI (CmdTUI) is started by main and is not dispatched by Run.
//
// # Commands
//
//   - render: Render one message with citation chips and a sources footer
//   - serve: HTTP render service and source view gateway
//   - sessions: List, search, rename and delete chats
//   - export: Write a chat as Markdown, HTML or JSON
//   - chat: Line-mode chat with :sources, :open and :copy
//   - config: Show, locate or initialize the configuration
//
// Every command honors --json, producing a JSONResponse envelope.
package cli
