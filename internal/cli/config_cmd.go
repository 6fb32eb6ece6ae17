// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The "config" command.
//
// Subcommands:
//   show (default)   Print the effective config, secrets redacted
//   path             Print the config file location
//   init [--force]   Write a config file with the defaults

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/citeview/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(env *Env) error {
	p := NewArgParser(env.Args.Raw, "force", "json")

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "show":
		if env.Args.JSON {
			return NewJSONResponse("config show", redacted(env.Config)).Print(env.Out)
		}
		fmt.Fprintln(env.Out, env.Config.String())
		return nil

	case "path":
		if env.Args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": env.ConfigPath}).Print(env.Out)
		}
		fmt.Fprintln(env.Out, env.ConfigPath)
		return nil

	case "init":
		return configInit(env, p.BoolFlag("force"))

	default:
		return NewUsageError(fmt.Sprintf("unknown config subcommand %q", sub))
	}
}

func configInit(env *Env, force bool) error {
	path := env.ConfigPath
	if path == "" {
		return errors.New("could not determine the config path; pass --config")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return &UsageError{Reason: path + " already exists", Example: "citeview config init --force"}
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "%s %s\n", SuccessStyle.Render("Wrote"), path)
	return nil
}

func redacted(cfg *config.Config) config.Config {
	safe := *cfg
	if safe.Backend.Token != "" {
		safe.Backend.Token = "[REDACTED]"
	}
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}
	return safe
}
