// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend talks to the external chat backend that owns sessions,
// messages and source files.
//
// Client implements session.Store, session.Responder and source.Resolver
// over the backend's JSON API. Every request carries a bearer token and is
// sent exactly once; callers decide whether to try again.
package backend
