// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Argument parsing shared by every command handler.

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits a command's arguments into flags and positionals.
// It accepts:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag (no value)
//   - Positional arguments, the first of which is the subcommand
//
// A flag followed by a word takes that word as its value unless the flag
// was declared boolean, so `render --html msg.json` keeps msg.json
// positional.
type ArgParser struct {
	subcommand string
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser parses raw. boolNames lists flags that never take a value.
//
// Example:
//
//	p := NewArgParser([]string{"search", "revenue", "--limit", "5", "--json"}, "json")
//	p.Subcommand()        // "search"
//	p.Positional(1)       // "revenue"
//	p.Flag("limit")       // "5"
//	p.BoolFlag("json")    // true
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	p := &ArgParser{
		flags:      make(map[string]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0),
		raw:        raw,
	}
	isBool := make(map[string]bool, len(boolNames))
	for _, n := range boolNames {
		isBool[n] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		// A lone "-" is stdin, not a flag.
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		if name, value, ok := strings.Cut(arg, "="); ok {
			name = strings.TrimLeft(name, "-")
			if value == "true" || value == "false" {
				p.boolFlags[name] = value == "true"
			} else {
				p.flags[name] = value
			}
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if !isBool[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}

	if len(p.positional) > 0 {
		p.subcommand = p.positional[0]
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the value of a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagOrDefault returns the flag value or def when it is absent.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if val := p.Flag(name); val != "" {
		return val
	}
	return def
}

// FlagInt returns the flag value as an integer.
func (p *ArgParser) FlagInt(name string) (int, error) {
	val := p.Flag(name)
	if val == "" {
		return 0, fmt.Errorf("flag %s not found", name)
	}
	return strconv.Atoi(val)
}

// FlagIntOrDefault returns the flag as an integer, or def when it is
// absent or malformed.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	val, err := p.FlagInt(name)
	if err != nil {
		return def
	}
	return val
}

// BoolFlag reports whether a boolean flag was set.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// Positional returns the positional argument at index (0 is the
// subcommand), or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positional arguments from index on.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return []string{}
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// HasFlag reports whether the flag was given in either form.
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// Raw returns the original arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// JoinPositionalArgs joins the positionals from startIndex into one
// string, for multi-word queries and titles.
func JoinPositionalArgs(p *ArgParser, startIndex int) string {
	return strings.Join(p.PositionalFrom(startIndex), " ")
}
