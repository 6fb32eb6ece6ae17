// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes citation segmentation and rendering over HTTP,
// plus a gateway to the backend's source view endpoint.
//
// Endpoints:
//   - GET  /health                 - liveness, version and uptime
//   - POST /api/segment            - split content into text and citation segments
//   - POST /api/render             - render a message as HTML or terminal text
//   - GET  /api/sources/{id}/view  - resolve a source id to a viewing URL
//
// Every response is JSON. Errors use the envelope
// {"error": {"message", "type", "code"}}.
package server
