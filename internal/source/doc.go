// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package source opens the document behind a citation.
//
// A Viewer asks the backend for a viewing locator with one authenticated
// GET /api/sources/{id}/view request and hands the returned URL to an
// Opener. Every outcome is reported as a Result carrying a short
// user-facing notice; the caller decides how to show it.
//
// No request is retried. A single LoadingTracker records which source is
// currently being fetched so views can disable their "View" action.
package source
