// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates citeview configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (highest precedence first):
//   - Environment variables (CITEVIEW_*)
//   - ~/.citeview/config.toml, or the file given with --config
//   - Built-in defaults
//
// The config directory can be moved with CITEVIEW_HOME.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Server.Addr())
//
// Watch reloads the file when it changes and publishes it with SetGlobal.
package config
