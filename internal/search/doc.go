// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search provides full-text search over session titles and message
// contents.
//
// The index lives in an in-memory SQLite database with an FTS5 table. It is
// rebuilt from a session.Store and never written to disk.
package search
