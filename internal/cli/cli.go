// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and the top-level handlers for citeview.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdRender
	CmdServe
	CmdSessions
	CmdExport
	CmdChat
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:      "tui",
	CmdRender:   "render",
	CmdServe:    "serve",
	CmdSessions: "sessions",
	CmdExport:   "export",
	CmdChat:     "chat",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

// String returns the command's name as typed.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config PATH
	Fixture    string // --fixture FILE: serve sessions from a JSON fixture
	BackendURL string // --backend URL: overrides [backend] base_url
	JSON       bool
	Verbose    bool

	// Unknown is set when the first word was not a command.
	Unknown string

	// Raw holds the arguments after the command name. Handlers parse
	// them with ArgParser.
	Raw []string
}

const usageText = `citeview - read and render answers that cite their sources

Usage:
  citeview                          Start the chat TUI (default)
  citeview render FILE              Render a message with citations
    --html                          Emit sanitized HTML instead of ANSI text
    --width N                       Wrap width (default: terminal width)
    --watch                         Re-render whenever FILE changes
  citeview serve                    Run the render service and source gateway
  citeview sessions [list]          List chats, most recent first
  citeview sessions search QUERY    Search chat titles and messages
  citeview sessions rename ID TITLE Rename a chat
  citeview sessions delete ID       Delete a chat
  citeview export ID                Export a chat to a file
    --format md|html|json           Output format (default: md)
    --out DIR                       Output directory
    --open                          Open the file afterwards
  citeview chat [--session ID]      Line-mode chat
  citeview config [show|path|init]  Show or create the configuration
  citeview version                  Show version information
  citeview help                     Show this help

Global flags:
  --config PATH                     Config file (default: ~/.citeview/config.toml)
  --fixture FILE                    Read chats from a JSON fixture instead of the backend
  --backend URL                     Backend base URL
  --json                            Machine-readable output
  -v, --verbose                     Debug logging

Chat commands:
  :sources                          List the sources of the last answer
  :open N                           Open source N of the last answer
  :copy                             Copy the last answer to the clipboard
  :quit                             Leave the chat

Version: %s
`

// PrintUsage prints the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "citeview version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs returns the command and arguments in argv (without the
// program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	parsed.Raw = remaining[1:]

	switch cmd {
	case "tui":
		return CmdTUI, parsed
	case "render":
		return CmdRender, parsed
	case "serve", "server":
		return CmdServe, parsed
	case "sessions", "session":
		return CmdSessions, parsed
	case "export":
		return CmdExport, parsed
	case "chat":
		return CmdChat, parsed
	case "config":
		return CmdConfig, parsed
	case "version", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		parsed.Unknown = cmd
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags wherever they appear.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	value := func(i *int) string {
		if *i+1 < len(argv) {
			*i++
			return argv[*i]
		}
		return ""
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--json":
			parsed.JSON = true
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--config":
			parsed.ConfigPath = value(&i)
		case arg == "--fixture":
			parsed.Fixture = value(&i)
		case arg == "--backend":
			parsed.BackendURL = value(&i)
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--fixture="):
			parsed.Fixture = strings.TrimPrefix(arg, "--fixture=")
		case strings.HasPrefix(arg, "--backend="):
			parsed.BackendURL = strings.TrimPrefix(arg, "--backend=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// VersionData is the --json shape of `citeview version`.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion handles the "version" command.
func HandleVersion(env *Env) error {
	if env.Args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(env.Out)
	}
	PrintVersion(env.Out)
	return nil
}

// HandleHelp handles the "help" command. An unknown command is reported
// as a usage error after the help text.
func HandleHelp(env *Env) error {
	PrintUsage(env.Out)
	if env.Args.Unknown != "" {
		return NewUsageError(fmt.Sprintf("unknown command %q", env.Args.Unknown))
	}
	return nil
}
