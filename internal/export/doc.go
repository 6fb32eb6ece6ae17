// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat session, citations included, to a file.
//
// # Supported Formats
//
//   - Markdown: markers kept verbatim, a "Sources:" list under each answer
//   - HTML: citation anchors, per-message source footers, highlighted code
//   - JSON: every message with its citation segments
//
// # Usage
//
//	exp, err := export.ForFormat(export.FormatHTML, opts)
//	path, err := export.ExportToFile(sess, exp, opts)
package export
