// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures exchanged with the chat backend.
//
// All of these values are supplied by an external store. citeview reads them
// and never persists them itself.
//
// # Key Types
//
//   - Citation: metadata for one inline [n] marker in an assistant reply
//   - Message: a single chat turn with role, content, citations and cost
//   - Session / SessionMeta: a chat thread and its sidebar summary
//   - Role: user or assistant
//
// # Usage
//
//	msg := model.NewMessage(model.RoleAssistant, "Revenue grew [1].")
//	msg.Citations = []model.Citation{{Number: 1, SourceID: "s1", SourceName: "Q3 report"}}
//	fmt.Println(msg.FormatCost())
package model
