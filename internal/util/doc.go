// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across citeview.
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateWidth / PadRight: display-width aware string fitting
//   - FirstLine: first non-empty line of a block of text
package util
