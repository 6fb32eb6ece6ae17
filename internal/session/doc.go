// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides access to chat sessions and the sidebar logic
// built on top of them.
//
// Sessions and messages are owned by an external store. Store abstracts it:
// the backend package implements it over HTTP and MemoryStore holds a
// fixture in memory for offline use and tests. Nothing here writes to disk.
//
// # Sidebar
//
//   - Filter: case-insensitive title search
//   - DisplayTitles: disambiguates duplicate titles with the creation time
//   - RelativeTime: "Just now", "5m ago", "3h ago", "2d ago" or a date
//   - Rename: inline title editing with trim and cancel semantics
//   - CanDelete: the active session cannot be deleted
package session
